package middleware

// identity.go holds the context keys JWTAuth fills in and the helpers
// handlers and other middleware use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
)

const (
	principalKey = "principal"
	requestIDKey = "request_id"
)

// SetPrincipal stores the authenticated caller on the context.
func SetPrincipal(c echo.Context, p auth.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the caller stored by JWTAuth.  ok is false on
// unauthenticated routes.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

// RequestID returns the id assigned by RequestLogger, if any.
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

// userID returns the caller's account id, or "guest" when nobody is
// authenticated.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok && p.ID != "" {
		return p.ID
	}
	return "guest"
}
