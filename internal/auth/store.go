package auth

import (
	"context"

	"github.com/iliyamo/ecommerce-backend/internal/model"
)

// CredentialStore persists accounts and checks their secrets.  Lookups
// return repository.ErrNotFound for missing accounts.  Writes rejected for
// reasons the user can fix return a *repository.StoreError.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account, password string) error
	Update(ctx context.Context, a *model.Account) error
	Delete(ctx context.Context, a *model.Account) error
	List(ctx context.Context, offset, limit int) ([]*model.Account, int, error)

	CheckPassword(a *model.Account, password string) bool
	IsConfirmed(a *model.Account) bool
	ChangePassword(ctx context.Context, a *model.Account, newPassword string) error

	IssueConfirmationCode(ctx context.Context, a *model.Account) (string, error)
	Confirm(ctx context.Context, a *model.Account, code string) error
	IssueResetCode(ctx context.Context, a *model.Account) (string, error)
	ResetPassword(ctx context.Context, a *model.Account, code, newPassword string) error
}

// RoleAuthority manages role names and memberships.
type RoleAuthority interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	Assign(ctx context.Context, accountID, name string) error
	Revoke(ctx context.Context, accountID, name string) error
	RolesFor(ctx context.Context, accountID string) ([]string, error)
}

// Notifier delivers a message out of band.  Send returns once delivery
// has been attempted.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Message is an outbound notification body.
type Message struct {
	Subject string
	Body    string
}

// MessageBuilder renders the notification that carries token to the
// account owner, typically as a link.
type MessageBuilder func(token string) Message
