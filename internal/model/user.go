package model

import "time"

// Role names known to the services. Role names are stored upper-case and
// compared case-sensitively, so callers normalize before checking.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Account represents an identity record as stored in the `accounts`
// table. Roles are not a column; they are loaded from `account_roles`
// by the role repository when a caller needs them.
//
// Fields:
//
//	ID             – opaque UUID assigned at creation, never changes.
//	Email          – normalized (trimmed, lower-case) unique address.
//	Name           – display name.
//	Phone          – E.164 phone number.
//	PasswordHash   – bcrypt hash; never serialized.
//	EmailConfirmed – flips false→true once through the confirmation flow.
type Account struct {
	ID             string    // accounts.id
	Email          string    // accounts.email
	Name           string    // accounts.name
	Phone          string    // accounts.phone
	PasswordHash   string    // accounts.password_hash
	EmailConfirmed bool      // accounts.email_confirmed
	CreatedAt      time.Time // accounts.created_at
	UpdatedAt      time.Time // accounts.updated_at
}

// TokenPurpose tells apart the one-time codes kept in `account_tokens`.
type TokenPurpose string

const (
	PurposeEmailConfirmation TokenPurpose = "email_confirmation"
	PurposePasswordReset     TokenPurpose = "password_reset"
)
