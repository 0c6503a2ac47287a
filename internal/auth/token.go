package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/ecommerce-backend/internal/model"
)

// DefaultTokenTTL is the lifetime of session and email confirmation
// tokens when TokenConfig leaves it unset.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenConfig is the immutable signing configuration shared by every
// service that issues or checks tokens.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	Audience        string
	SessionTTL      time.Duration
	ConfirmationTTL time.Duration
}

// SessionClaims is the payload of a session token.  The subject is the
// account id.
type SessionClaims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity used for access
// decisions.
func (c *SessionClaims) Principal() Principal {
	return Principal{ID: c.Subject, Email: c.Email, Roles: c.Roles}
}

// confirmationClaims wraps a store-issued one-time code.  It carries no
// issuer or audience.
type confirmationClaims struct {
	AccountID string `json:"uid"`
	Code      string `json:"code"`
	jwt.RegisteredClaims
}

// Codec issues and validates HS256 tokens.  It holds no mutable state and
// is safe for concurrent use.
type Codec struct {
	cfg TokenConfig
	now func() time.Time
}

// NewCodec returns a Codec for cfg.  An empty secret is rejected.
func NewCodec(cfg TokenConfig) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: token secret is empty")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultTokenTTL
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = DefaultTokenTTL
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

// IssueSessionToken signs a session token for the account and its roles.
func (c *Codec) IssueSessionToken(a *model.Account, roles []string) (string, error) {
	now := c.now()
	claims := SessionClaims{
		Email: a.Email,
		Name:  a.Name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.SessionTTL)),
			ID:        uuid.NewString(),
		},
	}
	return c.sign(claims)
}

// IssueEmailConfirmationToken wraps the account id and a one-time code.
func (c *Codec) IssueEmailConfirmationToken(accountID, code string) (string, error) {
	claims := confirmationClaims{
		AccountID: accountID,
		Code:      code,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(c.now().Add(c.cfg.ConfirmationTTL)),
		},
	}
	return c.sign(claims)
}

// ValidateSessionToken returns the claims of a well-signed, unexpired
// session token issued for this issuer and audience.  Every failure is
// reported the same way.
func (c *Codec) ValidateSessionToken(raw string) (*SessionClaims, bool) {
	var claims SessionClaims
	if !c.parse(raw, &claims,
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.Audience),
	) {
		return nil, false
	}
	if claims.Subject == "" {
		return nil, false
	}
	return &claims, true
}

// ValidateEmailConfirmationToken unwraps the account id and code.  ok is
// false when the envelope is invalid or either field is empty.
func (c *Codec) ValidateEmailConfirmationToken(raw string) (accountID, code string, ok bool) {
	var claims confirmationClaims
	if !c.parse(raw, &claims) {
		return "", "", false
	}
	if claims.AccountID == "" || claims.Code == "" {
		return "", "", false
	}
	return claims.AccountID, claims.Code, true
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
}

func (c *Codec) parse(raw string, claims jwt.Claims, extra ...jwt.ParserOption) bool {
	if raw == "" {
		return false
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}, extra...)
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	}, opts...)
	return err == nil && tok.Valid
}
