// Package auth implements the credential lifecycle: registration, email
// confirmation, login, password reset, role management and account
// administration.  Business failures are reported as Result codes; the
// error return is reserved for failures the caller cannot fix.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/repository"
)

// MaxPageSize bounds GetUsersWithPagination.
const MaxPageSize = 100

const (
	msgUserExists       = "User with this email already exists."
	msgAlreadyConfirmed = "Email is already confirmed."
)

// RegisterInput is the already validated registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// UpdateInput holds profile changes.  Empty fields are left untouched.
type UpdateInput struct {
	Name  string
	Phone string
}

// UserSummary is returned by Register.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserView is the public rendering of an account.
type UserView struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Page is one page of accounts.
type Page struct {
	Items []UserView `json:"items"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Total int        `json:"total"`
}

// Service is the auth orchestrator.
type Service struct {
	users    CredentialStore
	roles    RoleAuthority
	codec    *Codec
	notifier Notifier
	log      logrus.FieldLogger
}

func NewService(users CredentialStore, roles RoleAuthority, codec *Codec, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{users: users, roles: roles, codec: codec, notifier: notifier, log: log}
}

// Register creates an unconfirmed account with the default role and sends
// exactly one confirmation message built by build.  A failed send is
// returned as an error but the account is kept; the caller recovers with
// SendEmailConfirmation, since registering again yields UserAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput, build MessageBuilder) (Result, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return fail(UserAlreadyExists, msgUserExists), nil
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, fmt.Errorf("lookup account: %w", err)
	}

	a := &model.Account{Email: in.Email, Name: in.Name, Phone: in.Phone}
	if err := s.users.Create(ctx, a, in.Password); err != nil {
		// the unique index settles concurrent registrations
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(UserAlreadyExists, msgUserExists), nil
		}
		if p, ok := storeProblems(err); ok {
			return failWith(InvalidCredentials, p), nil
		}
		return Result{}, fmt.Errorf("create account: %w", err)
	}

	if err := s.grant(ctx, a.ID, model.RoleUser); err != nil {
		return Result{}, fmt.Errorf("assign default role: %w", err)
	}
	if err := s.sendConfirmation(ctx, a, build); err != nil {
		return Result{}, err
	}

	s.log.WithFields(logrus.Fields{"account_id": a.ID}).Info("account registered")
	return succeed(UserSummary{ID: a.ID, Email: a.Email}), nil
}

// SendEmailConfirmation issues a fresh confirmation token for an
// unconfirmed account and sends it.
func (s *Service) SendEmailConfirmation(ctx context.Context, email string, build MessageBuilder) (Result, error) {
	a, res, err := s.accountByEmail(ctx, email, InvalidUser)
	if a == nil {
		return res, err
	}
	if s.users.IsConfirmed(a) {
		return fail(EmailAlreadyConfirmed), nil
	}
	if err := s.sendConfirmation(ctx, a, build); err != nil {
		return Result{}, err
	}
	return succeed(nil), nil
}

// ConfirmEmail checks both the token envelope and the inner store code,
// marks the email confirmed and signs the account in.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (Result, error) {
	accountID, code, valid := s.codec.ValidateEmailConfirmationToken(token)
	if !valid {
		return fail(InvalidToken), nil
	}
	a, res, err := s.accountByID(ctx, accountID, InvalidCredentials)
	if a == nil {
		return res, err
	}
	if s.users.IsConfirmed(a) {
		return fail(EmailAlreadyConfirmed, msgAlreadyConfirmed), nil
	}

	if err := s.users.Confirm(ctx, a, code); err != nil {
		p, known := storeProblems(err)
		switch {
		case known && errors.Is(err, repository.ErrConflict):
			return failWith(EmailAlreadyConfirmed, p), nil
		case known:
			return failWith(InvalidToken, p), nil
		}
		return Result{}, fmt.Errorf("confirm email: %w", err)
	}

	s.log.WithFields(logrus.Fields{"account_id": a.ID}).Info("email confirmed")
	return s.signIn(ctx, a)
}

// Login checks existence, then confirmation, then the password.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	a, res, err := s.accountByEmail(ctx, email, InvalidUser)
	if a == nil {
		return res, err
	}
	if !s.users.IsConfirmed(a) {
		return fail(EmailNotConfirmed), nil
	}
	if !s.users.CheckPassword(a, password) {
		return fail(InvalidEmailOrPassword), nil
	}
	return s.signIn(ctx, a)
}

// AssignRole grants role to the account, creating the role when needed.
func (s *Service) AssignRole(ctx context.Context, accountID, role string) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, InvalidUser)
	if a == nil {
		return res, err
	}
	role = normalizeRole(role)
	if role == "" {
		return fail(InvalidData, "Role name is required."), nil
	}
	if err := s.grant(ctx, a.ID, role); err != nil {
		if p, ok := storeProblems(err); ok {
			return failWith(Conflict, p), nil
		}
		return Result{}, fmt.Errorf("assign role: %w", err)
	}
	s.log.WithFields(logrus.Fields{"account_id": a.ID, "role": role}).Info("role assigned")
	return succeed(nil), nil
}

// RevokeRole removes role from the account.
func (s *Service) RevokeRole(ctx context.Context, accountID, role string) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, InvalidUser)
	if a == nil {
		return res, err
	}
	role = normalizeRole(role)
	if role == "" {
		return fail(InvalidData, "Role name is required."), nil
	}
	if err := s.roles.Revoke(ctx, a.ID, role); err != nil {
		if p, ok := storeProblems(err); ok {
			return failWith(Conflict, p), nil
		}
		return Result{}, fmt.Errorf("revoke role: %w", err)
	}
	s.log.WithFields(logrus.Fields{"account_id": a.ID, "role": role}).Info("role revoked")
	return succeed(nil), nil
}

// GeneratePasswordResetToken sends a one-time reset code.  Unknown
// accounts get the same code as a rejected reset.
func (s *Service) GeneratePasswordResetToken(ctx context.Context, email string, build MessageBuilder) (Result, error) {
	a, res, err := s.accountByEmail(ctx, email, InvalidCredentials)
	if a == nil {
		return res, err
	}
	code, err := s.users.IssueResetCode(ctx, a)
	if err != nil {
		return Result{}, fmt.Errorf("issue reset code: %w", err)
	}
	if err := s.send(ctx, a, build(code)); err != nil {
		return Result{}, err
	}
	return succeed(nil), nil
}

// ResetPassword consumes a reset code and stores newPassword.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (Result, error) {
	a, res, err := s.accountByEmail(ctx, email, InvalidCredentials)
	if a == nil {
		return res, err
	}
	if err := s.users.ResetPassword(ctx, a, code, newPassword); err != nil {
		if p, ok := storeProblems(err); ok {
			return failWith(InvalidCredentials, p), nil
		}
		return Result{}, fmt.Errorf("reset password: %w", err)
	}
	s.log.WithFields(logrus.Fields{"account_id": a.ID}).Info("password reset")
	return succeed(nil), nil
}

// ChangePassword replaces the password of a signed-in account after
// checking the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID, current, newPassword string) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, InvalidUser)
	if a == nil {
		return res, err
	}
	if !s.users.CheckPassword(a, current) {
		return fail(InvalidEmailOrPassword), nil
	}
	if err := s.users.ChangePassword(ctx, a, newPassword); err != nil {
		if p, ok := storeProblems(err); ok {
			return failWith(InvalidCredentials, p), nil
		}
		return Result{}, fmt.Errorf("change password: %w", err)
	}
	return succeed(nil), nil
}

// UpdateUser applies profile changes and returns the updated view.
func (s *Service) UpdateUser(ctx context.Context, accountID string, in UpdateInput) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, InvalidUser)
	if a == nil {
		return res, err
	}
	if in.Name != "" {
		a.Name = in.Name
	}
	if in.Phone != "" {
		a.Phone = in.Phone
	}
	if err := s.users.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(InvalidUser), nil
		}
		if p, ok := storeProblems(err); ok {
			return failWith(InvalidData, p), nil
		}
		return Result{}, fmt.Errorf("update account: %w", err)
	}
	return s.view(ctx, a)
}

// DeleteUser removes the account.  A missing account is NoUsersFound.
func (s *Service) DeleteUser(ctx context.Context, accountID string) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, NoUsersFound)
	if a == nil {
		return res, err
	}
	if err := s.users.Delete(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(NoUsersFound), nil
		}
		s.log.WithError(err).WithField("account_id", a.ID).Error("delete account")
		return fail(DeletionFailed, "User could not be deleted."), nil
	}
	s.log.WithFields(logrus.Fields{"account_id": a.ID}).Info("account deleted")
	return succeed(nil), nil
}

// GetUserByEmail returns the account with its roles.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (Result, error) {
	a, res, err := s.accountByEmail(ctx, email, InvalidUser)
	if a == nil {
		return res, err
	}
	return s.view(ctx, a)
}

// GetUserByID returns the account with its roles.
func (s *Service) GetUserByID(ctx context.Context, accountID string) (Result, error) {
	a, res, err := s.accountByID(ctx, accountID, InvalidUser)
	if a == nil {
		return res, err
	}
	return s.view(ctx, a)
}

// GetUsersWithPagination returns page (1-based) of size accounts.
func (s *Service) GetUsersWithPagination(ctx context.Context, page, size int) (Result, error) {
	if page < 1 || size < 1 || size > MaxPageSize {
		return fail(InvalidData, fmt.Sprintf("Page must be at least 1 and size between 1 and %d.", MaxPageSize)), nil
	}
	accounts, total, err := s.users.List(ctx, (page-1)*size, size)
	if err != nil {
		return Result{}, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fail(NoUsersFound), nil
	}
	items := make([]UserView, 0, len(accounts))
	for _, a := range accounts {
		roles, err := s.roles.RolesFor(ctx, a.ID)
		if err != nil {
			return Result{}, fmt.Errorf("load roles: %w", err)
		}
		items = append(items, toView(a, roles))
	}
	return succeed(Page{Items: items, Page: page, Size: size, Total: total}), nil
}

func (s *Service) accountByEmail(ctx context.Context, email string, missing ErrorCode) (*model.Account, Result, error) {
	a, err := s.users.FindByEmail(ctx, email)
	return found(a, err, missing)
}

func (s *Service) accountByID(ctx context.Context, id string, missing ErrorCode) (*model.Account, Result, error) {
	a, err := s.users.FindByID(ctx, id)
	return found(a, err, missing)
}

// found turns a lookup into either an account or the result to return.
func found(a *model.Account, err error, missing ErrorCode) (*model.Account, Result, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(missing), nil
		}
		return nil, Result{}, fmt.Errorf("lookup account: %w", err)
	}
	return a, Result{}, nil
}

func (s *Service) signIn(ctx context.Context, a *model.Account) (Result, error) {
	roles, err := s.roles.RolesFor(ctx, a.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load roles: %w", err)
	}
	token, err := s.codec.IssueSessionToken(a, roles)
	if err != nil {
		return Result{}, fmt.Errorf("sign session token: %w", err)
	}
	return withToken(token), nil
}

func (s *Service) view(ctx context.Context, a *model.Account) (Result, error) {
	roles, err := s.roles.RolesFor(ctx, a.ID)
	if err != nil {
		return Result{}, fmt.Errorf("load roles: %w", err)
	}
	return succeed(toView(a, roles)), nil
}

func (s *Service) sendConfirmation(ctx context.Context, a *model.Account, build MessageBuilder) error {
	code, err := s.users.IssueConfirmationCode(ctx, a)
	if err != nil {
		return fmt.Errorf("issue confirmation code: %w", err)
	}
	token, err := s.codec.IssueEmailConfirmationToken(a.ID, code)
	if err != nil {
		return fmt.Errorf("sign confirmation token: %w", err)
	}
	return s.send(ctx, a, build(token))
}

func (s *Service) send(ctx context.Context, a *model.Account, msg Message) error {
	if err := s.notifier.Send(ctx, a.Email, msg.Subject, msg.Body); err != nil {
		s.log.WithError(err).WithField("account_id", a.ID).Warn("notification not sent")
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// grant ensures the role exists and assigns it.
func (s *Service) grant(ctx context.Context, accountID, role string) error {
	exists, err := s.roles.Exists(ctx, role)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
	}
	return s.roles.Assign(ctx, accountID, role)
}

func normalizeRole(role string) string { return strings.ToUpper(strings.TrimSpace(role)) }

func storeProblems(err error) (any, bool) {
	var se *repository.StoreError
	if errors.As(err, &se) {
		return se.Problems(), true
	}
	return nil, false
}

func toView(a *model.Account, roles []string) UserView {
	if roles == nil {
		roles = []string{}
	}
	return UserView{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		Phone:          a.Phone,
		EmailConfirmed: a.EmailConfirmed,
		Roles:          roles,
		CreatedAt:      a.CreatedAt,
	}
}
