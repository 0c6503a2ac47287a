package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and stores the caller as an auth.Principal on the context.  Handlers read
// it back with PrincipalFrom.
func JWTAuth(codec *auth.Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			claims, ok := codec.ValidateSessionToken(strings.TrimSpace(raw))
			if !ok {
				// expired, malformed and forged tokens look the same to the client
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			SetPrincipal(c, claims.Principal())
			return next(c)
		}
	}
}
