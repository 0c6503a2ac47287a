package handler_test

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email string) map[string]string {
	return map[string]string{"email": email, "password": goodPassword, "name": "Ada", "phone": goodPhone}
}

func TestRegisterConfirmLogin(t *testing.T) {
	v := newEnv(t)

	rec := call(v.e, http.MethodPost, "/v1/auth/register", registerBody(" Ada@Example.com "), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Success", body["code"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.NotEmpty(t, data["id"])

	sent := v.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "https://shop.example/v1/auth/confirm-email?token=")
	assert.Contains(t, sent[0].Body, "Hello Ada,")

	rec = call(v.e, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": goodPassword}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EmailNotConfirmed", decode(t, rec)["code"])

	rec = call(v.e, http.MethodGet, "/v1/auth/confirm-email?token="+v.mailedToken(t), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = call(v.e, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": goodPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode(t, rec)["token"].(string)
	claims, ok := v.codec.ValidateSessionToken(tok)
	require.True(t, ok)
	assert.Equal(t, []string{"USER"}, claims.Roles)

	assert.Equal(t, 1.0, testutil.ToFloat64(v.metrics.AuthResultsTotal.WithLabelValues("register", "Success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(v.metrics.AuthResultsTotal.WithLabelValues("login", "EmailNotConfirmed")))
}

func TestRegister_Duplicate(t *testing.T) {
	v := newEnv(t)
	require.Equal(t, http.StatusCreated, call(v.e, http.MethodPost, "/v1/auth/register", registerBody("dup@example.com"), "").Code)

	rec := call(v.e, http.MethodPost, "/v1/auth/register", registerBody("DUP@example.com"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "UserAlreadyExists", decode(t, rec)["code"])
	assert.Len(t, v.outbox.Sent(), 1)
}

func TestRegister_InvalidPayload(t *testing.T) {
	v := newEnv(t)
	rec := call(v.e, http.MethodPost, "/v1/auth/register",
		map[string]string{"email": "not-an-email", "password": "weak", "name": "", "phone": "5551234"}, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "InvalidData", body["code"])
	errs := body["errors"].(map[string]any)
	for _, field := range []string{"email", "password", "name", "phone"} {
		assert.Contains(t, errs, field)
	}
	assert.Greater(t, len(errs["password"].([]any)), 1, "one message per broken rule")
	assert.Empty(t, v.outbox.Sent())
}

func TestRegister_BadJSON(t *testing.T) {
	v := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(`{"email":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidData", decode(t, rec)["code"])
}

func TestRegister_NotifierDown(t *testing.T) {
	v := newEnv(t)
	v.outbox.Err = assert.AnError

	rec := call(v.e, http.MethodPost, "/v1/auth/register", registerBody("down@example.com"), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "InternalServerError", body["code"])
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestConfirmEmail_MissingAndBadToken(t *testing.T) {
	v := newEnv(t)

	rec := call(v.e, http.MethodGet, "/v1/auth/confirm-email", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidToken", decode(t, rec)["code"])

	rec = call(v.e, http.MethodGet, "/v1/auth/confirm-email?token=garbage", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidToken", decode(t, rec)["code"])
}

func TestResendConfirmation(t *testing.T) {
	v := newEnv(t)
	require.Equal(t, http.StatusCreated, call(v.e, http.MethodPost, "/v1/auth/register", registerBody("re@example.com"), "").Code)

	rec := call(v.e, http.MethodPost, "/v1/auth/confirm-email/resend", map[string]string{"email": "re@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, v.outbox.Sent(), 2)

	// the newest link confirms
	rec = call(v.e, http.MethodGet, "/v1/auth/confirm-email?token="+v.mailedToken(t), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(v.e, http.MethodPost, "/v1/auth/confirm-email/resend", map[string]string{"email": "re@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EmailAlreadyConfirmed", decode(t, rec)["code"])

	rec = call(v.e, http.MethodPost, "/v1/auth/confirm-email/resend", map[string]string{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidUser", decode(t, rec)["code"])
}

var mailedCode = regexp.MustCompile(`<code>([^<]+)</code>`)

func TestForgotAndResetPassword(t *testing.T) {
	v := newEnv(t)
	v.seedConfirmed(t, "reset@example.com")

	rec := call(v.e, http.MethodPost, "/v1/auth/password/forgot", map[string]string{"email": "reset@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m, ok := v.outbox.Last()
	require.True(t, ok)
	assert.Equal(t, "Reset your password", m.Subject)
	match := mailedCode.FindStringSubmatch(m.Body)
	require.Len(t, match, 2)
	code := match[1]

	rec = call(v.e, http.MethodPost, "/v1/auth/password/reset",
		map[string]string{"email": "reset@example.com", "code": "wrong", "newPassword": "N3w-Passw0rd"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidCredentials", decode(t, rec)["code"])

	rec = call(v.e, http.MethodPost, "/v1/auth/password/reset",
		map[string]string{"email": "reset@example.com", "code": code, "newPassword": "N3w-Passw0rd"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(v.e, http.MethodPost, "/v1/auth/login", map[string]string{"email": "reset@example.com", "password": "N3w-Passw0rd"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(v.e, http.MethodPost, "/v1/auth/password/forgot", map[string]string{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidCredentials", decode(t, rec)["code"])
}

func TestResetPassword_WeakPasswordRejectedBeforeService(t *testing.T) {
	v := newEnv(t)
	rec := call(v.e, http.MethodPost, "/v1/auth/password/reset",
		map[string]string{"email": "x@example.com", "code": "c", "newPassword": "short"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "InvalidData", body["code"])
	assert.True(t, strings.Contains(rec.Body.String(), "newPassword"))
}
