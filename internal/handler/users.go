package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

// UserHandler serves the account endpoints that need a session.
type UserHandler struct {
	Svc     *auth.Service
	Metrics *metrics.Metrics
}

func NewUserHandler(svc *auth.Service, m *metrics.Metrics) *UserHandler {
	return &UserHandler{Svc: svc, Metrics: m}
}

// Me returns the caller's own account.
func (h *UserHandler) Me(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.GetUserByID(ctx, p.ID)
	return respond(c, h.Metrics, "get_user", res, err, 0)
}

// GetUser returns an account by id.  Only the owner or an admin.
func (h *UserHandler) GetUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !auth.CanMutate(p, id) {
		return forbidden(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.GetUserByID(ctx, id)
	return respond(c, h.Metrics, "get_user", res, err, 0)
}

// UpdateUser changes name and/or phone.  Only the owner or an admin.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !auth.CanMutate(p, id) {
		return forbidden(c)
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "update_user", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	in := auth.UpdateInput{Name: req.Name}
	if req.Phone != "" {
		in.Phone = validation.NormalizePhone(req.Phone)
	}
	res, err := h.Svc.UpdateUser(ctx, id, in)
	return respond(c, h.Metrics, "update_user", res, err, 0)
}

// DeleteUser removes an account.  Only the owner or an admin.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if !auth.CanMutate(p, id) {
		return forbidden(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.DeleteUser(ctx, id)
	return respond(c, h.Metrics, "delete_user", res, err, 0)
}

// ChangePassword replaces the caller's password.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "change_password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.ChangePassword(ctx, p.ID, req.CurrentPassword, req.NewPassword)
	return respond(c, h.Metrics, "change_password", res, err, 0)
}

// ----- admin -----

// ListUsers: GET /v1/users?page=&size=
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, size, ok := pageParams(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, auth.Result{Code: auth.InvalidData, Errors: []string{"page and size must be integers"}})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.GetUsersWithPagination(ctx, page, size)
	return respond(c, h.Metrics, "list_users", res, err, 0)
}

// GetUserByEmail: GET /v1/users/by-email?email=
func (h *UserHandler) GetUserByEmail(c echo.Context) error {
	req := emailReq{Email: c.QueryParam("email")}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "get_user_by_email", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.GetUserByEmail(ctx, req.Email)
	return respond(c, h.Metrics, "get_user_by_email", res, err, 0)
}

// AssignRole: POST /v1/users/:id/roles {"role": "..."}
func (h *UserHandler) AssignRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if err := req.Validate(); err != nil {
		return invalid(c, h.Metrics, "assign_role", err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.AssignRole(ctx, c.Param("id"), req.Role)
	return respond(c, h.Metrics, "assign_role", res, err, 0)
}

// RevokeRole: DELETE /v1/users/:id/roles/:role
func (h *UserHandler) RevokeRole(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.RevokeRole(ctx, c.Param("id"), c.Param("role"))
	return respond(c, h.Metrics, "revoke_role", res, err, 0)
}
