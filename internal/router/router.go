// Package router defines how HTTP routes are registered for the two
// services.  The auth service mounts RegisterAuth and RegisterUsers, the
// catalog service mounts RegisterProducts; both mount RegisterRoutes.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/config"
	"github.com/iliyamo/ecommerce-backend/internal/handler"
	"github.com/iliyamo/ecommerce-backend/internal/metrics"
	"github.com/iliyamo/ecommerce-backend/internal/middleware"
	"github.com/iliyamo/ecommerce-backend/internal/model"
)

// RegisterRoutes registers the routes every service exposes without
// authentication: the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db *sql.DB, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(db))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the session-less account operations under
// /v1/auth.  They are throttled by the token bucket limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) {
	g := e.Group("/v1/auth", middleware.RateLimit(rl, rdb, a.Metrics, log))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/confirm-email", a.ConfirmEmail)
	g.POST("/confirm-email/resend", a.ResendConfirmation)
	g.POST("/password/forgot", a.ForgotPassword)
	g.POST("/password/reset", a.ResetPassword)
}

// RegisterUsers registers the account endpoints that need a session.
// Listing, lookup by email and role changes are reserved for ADMIN.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, codec *auth.Codec) {
	g := e.Group("/v1", middleware.JWTAuth(codec))
	g.GET("/me", u.Me)
	g.POST("/users/me/password", u.ChangePassword)
	g.GET("/users/:id", u.GetUser)
	g.PUT("/users/:id", u.UpdateUser)
	g.DELETE("/users/:id", u.DeleteUser)

	admin := e.Group("/v1/users", middleware.JWTAuth(codec), middleware.RequireRole(model.RoleAdmin))
	admin.GET("", u.ListUsers)
	admin.GET("/by-email", u.GetUserByEmail)
	admin.POST("/:id/roles", u.AssignRole)
	admin.DELETE("/:id/roles/:role", u.RevokeRole)
}

// RegisterProducts registers the catalog.  Reads are public and served
// through the response cache; writes need a session.
func RegisterProducts(e *echo.Echo, p *handler.ProductHandler, codec *auth.Codec, cc config.CacheConfig, m *metrics.Metrics) {
	cached := middleware.ResponseCache(cc, p.Redis, m)
	e.GET("/v1/products", p.ListProducts, cached)
	e.GET("/v1/products/:id", p.GetProduct, cached)

	g := e.Group("/v1/products", middleware.JWTAuth(codec))
	g.POST("", p.CreateProduct)
	g.PUT("/:id", p.UpdateProduct)
	g.DELETE("/:id", p.DeleteProduct)
}
