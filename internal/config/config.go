// Package config loads application configuration from environment
// variables.  Both services call Load; each uses the parts it needs.
package config

import (
	"time"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env      string // application environment (e.g. "dev", "prod")
	Port     string // HTTP port to listen on
	LogLevel string // logrus level name

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret       string        // secret used to sign tokens, required
	JWTIssuer       string        // iss claim of session tokens
	JWTAudience     string        // aud claim of session tokens
	SessionTTL      time.Duration // session token lifetime
	ConfirmationTTL time.Duration // email confirmation token lifetime
	ResetCodeTTL    time.Duration // password reset code lifetime
	BcryptCost      int           // bcrypt cost for password hashing

	PublicBaseURL string        // base of links placed in outbound mail
	RabbitMQURL   string        // broker for outbound mail
	NotifyTimeout time.Duration // bound on a single notification send
	AdminEmail    string        // account promoted to ADMIN at startup, optional
}

// Load reads configuration values from environment variables.  Missing
// required variables terminate the program.
func Load() Config {
	return Config{
		Env:      must("APP_ENV"),
		Port:     must("APP_PORT"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		DBUser: must("DB_USER"),
		DBPass: envStr("DB_PASS", ""),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:       must("JWT_SECRET"),
		JWTIssuer:       envStr("JWT_ISSUER", "ecommerce-auth"),
		JWTAudience:     envStr("JWT_AUDIENCE", "ecommerce-clients"),
		SessionTTL:      envDur("SESSION_TTL", auth.DefaultTokenTTL),
		ConfirmationTTL: envDur("CONFIRMATION_TTL", auth.DefaultTokenTTL),
		ResetCodeTTL:    envDur("RESET_CODE_TTL", time.Hour),
		BcryptCost:      envInt("BCRYPT_COST", 12),

		PublicBaseURL: envStr("PUBLIC_BASE_URL", "http://localhost:8080"),
		RabbitMQURL:   envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		NotifyTimeout: envDur("NOTIFY_TIMEOUT", 10*time.Second),
		AdminEmail:    envStr("ADMIN_EMAIL", ""),
	}
}

// TokenConfig returns the signing configuration shared by both services.
func (c Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:          []byte(c.JWTSecret),
		Issuer:          c.JWTIssuer,
		Audience:        c.JWTAudience,
		SessionTTL:      c.SessionTTL,
		ConfirmationTTL: c.ConfirmationTTL,
	}
}
