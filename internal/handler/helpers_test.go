package handler_test

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/auth/authtest"
	"github.com/iliyamo/ecommerce-backend/internal/handler"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/middleware"
	"github.com/iliyamo/ecommerce-backend/internal/model"
)

const (
	goodPassword = "Passw0rd!"
	goodPhone    = "+14155552671"
)

type env struct {
	e       *echo.Echo
	codec   *auth.Codec
	svc     *auth.Service
	users   *authtest.Store
	roles   *authtest.RoleStore
	outbox  *authtest.Outbox
	metrics *metrics.Metrics
}

// newEnv mounts the auth and user handlers the way the auth server does,
// minus rate limiting.
func newEnv(t *testing.T) *env {
	t.Helper()
	codec, err := auth.NewCodec(auth.TokenConfig{Secret: []byte("handler-secret"), Issuer: "iss", Audience: "aud"})
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()

	v := &env{
		codec:   codec,
		users:   authtest.NewStore(),
		roles:   authtest.NewRoleStore(),
		outbox:  &authtest.Outbox{},
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}
	v.svc = auth.NewService(v.users, v.roles, codec, v.outbox, logger)

	v.e = echo.New()
	v.e.HTTPErrorHandler = handler.ErrorHandler(logger)

	a := handler.NewAuthHandler(v.svc, v.metrics, "https://shop.example")
	g := v.e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/confirm-email", a.ConfirmEmail)
	g.POST("/confirm-email/resend", a.ResendConfirmation)
	g.POST("/password/forgot", a.ForgotPassword)
	g.POST("/password/reset", a.ResetPassword)

	u := handler.NewUserHandler(v.svc, v.metrics)
	s := v.e.Group("/v1", middleware.JWTAuth(codec))
	s.GET("/me", u.Me)
	s.POST("/users/me/password", u.ChangePassword)
	s.GET("/users/:id", u.GetUser)
	s.PUT("/users/:id", u.UpdateUser)
	s.DELETE("/users/:id", u.DeleteUser)
	adm := v.e.Group("/v1/users", middleware.JWTAuth(codec), middleware.RequireRole(model.RoleAdmin))
	adm.GET("", u.ListUsers)
	adm.GET("/by-email", u.GetUserByEmail)
	adm.POST("/:id/roles", u.AssignRole)
	adm.DELETE("/:id/roles/:role", u.RevokeRole)
	return v
}

func call(e *echo.Echo, method, target string, body any, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		bs, _ := json.Marshal(body)
		req = httptest.NewRequest(method, target, strings.NewReader(string(bs)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// sessionFor issues a token without going through login.
func (v *env) sessionFor(t *testing.T, a *model.Account, roles ...string) string {
	t.Helper()
	tok, err := v.codec.IssueSessionToken(a, roles)
	require.NoError(t, err)
	return tok
}

func (v *env) seedConfirmed(t *testing.T, email string, roles ...string) *model.Account {
	t.Helper()
	a := v.users.Seed(model.Account{Email: email, Name: "Seeded", Phone: goodPhone, EmailConfirmed: true}, goodPassword)
	for _, r := range roles {
		require.NoError(t, v.roles.Create(context.Background(), r))
		require.NoError(t, v.roles.Assign(context.Background(), a.ID, r))
	}
	return a
}

var linkToken = regexp.MustCompile(`token=([^"&]+)`)

// mailedToken pulls the confirmation token out of the last mailed link.
func (v *env) mailedToken(t *testing.T) string {
	t.Helper()
	m, ok := v.outbox.Last()
	require.True(t, ok, "nothing mailed")
	match := linkToken.FindStringSubmatch(html.UnescapeString(m.Body))
	require.Len(t, match, 2, m.Body)
	tok, err := url.QueryUnescape(match[1])
	require.NoError(t, err)
	return tok
}
