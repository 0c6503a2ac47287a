package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

// requestTimeout bounds the store and notification work of one request.
const requestTimeout = 10 * time.Second

// AuthHandler bundles dependencies for the public auth endpoints.
type AuthHandler struct {
	Svc      *auth.Service
	Metrics  *metrics.Metrics
	Messages Messages
}

func NewAuthHandler(svc *auth.Service, m *metrics.Metrics, baseURL string) *AuthHandler {
	return &AuthHandler{Svc: svc, Metrics: m, Messages: Messages{BaseURL: baseURL}}
}

// Register: create an unconfirmed account and mail the confirmation link.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "register", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Register(ctx, auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    validation.NormalizePhone(req.Phone),
	}, h.Messages.Confirmation(req.Name))
	return respond(c, h.Metrics, "register", res, err, http.StatusCreated)
}

// Login: exchange email and password for a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "login", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	return respond(c, h.Metrics, "login", res, err, 0)
}

// ConfirmEmail: GET ?token= from the mailed link.  Success signs the
// account in.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, auth.Result{Code: auth.InvalidToken, Errors: []string{"token is required"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.ConfirmEmail(ctx, token)
	return respond(c, h.Metrics, "confirm_email", res, err, 0)
}

// ResendConfirmation: issue a fresh confirmation link.
func (h *AuthHandler) ResendConfirmation(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "resend_confirmation", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.SendEmailConfirmation(ctx, req.Email, h.Messages.Confirmation(""))
	return respond(c, h.Metrics, "resend_confirmation", res, err, 0)
}

// ForgotPassword: mail a one-time reset code.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "forgot_password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.GeneratePasswordResetToken(ctx, req.Email, h.Messages.PasswordReset(req.Email))
	return respond(c, h.Metrics, "forgot_password", res, err, 0)
}

// ResetPassword: consume a reset code and set a new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "reset_password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.ResetPassword(ctx, req.Email, req.Code, req.NewPassword)
	return respond(c, h.Metrics, "reset_password", res, err, 0)
}
