package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/utils"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

const accountColumns = "id,email,name,phone,password_hash,email_confirmed,created_at,updated_at"

// UserRepo is the credential store backed by the `accounts` table.  One-time
// codes for email confirmation and password reset go through Codes.
type UserRepo struct {
	DB              *sql.DB
	Codes           *AccountTokenRepo
	Cost            int           // bcrypt cost
	ConfirmationTTL time.Duration // lifetime of email confirmation codes
	ResetTTL        time.Duration // lifetime of password reset codes
}

func NewUserRepo(db *sql.DB, cost int, confirmationTTL, resetTTL time.Duration) *UserRepo {
	return &UserRepo{
		DB:              db,
		Codes:           NewAccountTokenRepo(db),
		Cost:            cost,
		ConfirmationTTL: confirmationTTL,
		ResetTTL:        resetTTL,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.PasswordHash, &a.EmailConfirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByEmail fetches an account by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// FindByID fetches an account by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

// Create inserts the account with a freshly hashed password.  The id is
// generated when empty.  A duplicate email yields ErrEmailExists; a weak
// password yields a *StoreError with field details.
func (r *UserRepo) Create(ctx context.Context, a *model.Account, password string) error {
	if p := validation.PasswordProblems(password); len(p) > 0 {
		return &StoreError{Err: ErrInvalidPassword, Fields: map[string][]string{"password": p}}
	}
	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = NormalizeEmail(a.Email)
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id, email, name, phone, password_hash, email_confirmed) VALUES (?,?,?,?,?,0)",
		a.ID, a.Email, a.Name, a.Phone, hash)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	now := time.Now().UTC()
	a.PasswordHash = hash
	a.EmailConfirmed = false
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// Update writes the mutable profile fields (name, phone).
func (r *UserRepo) Update(ctx context.Context, a *model.Account) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET name=?, phone=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		a.Name, a.Phone, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the account together with its role memberships and
// pending codes.
func (r *UserRepo) Delete(ctx context.Context, a *model.Account) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM account_roles WHERE account_id=?", a.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM account_tokens WHERE account_id=?", a.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id=?", a.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CheckPassword reports whether password matches the stored hash.
func (r *UserRepo) CheckPassword(a *model.Account, password string) bool {
	return utils.VerifyPassword(a.PasswordHash, password)
}

// IsConfirmed reports the email confirmation state of a loaded account.
func (r *UserRepo) IsConfirmed(a *model.Account) bool { return a.EmailConfirmed }

// ChangePassword stores a new password after checking the policy.
func (r *UserRepo) ChangePassword(ctx context.Context, a *model.Account, newPassword string) error {
	hash, err := r.hashNewPassword(newPassword)
	if err != nil {
		return err
	}
	if err := r.setPasswordHash(ctx, r.DB, a.ID, hash); err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// IssueConfirmationCode returns a one-time code proving control of the
// account's email address.
func (r *UserRepo) IssueConfirmationCode(ctx context.Context, a *model.Account) (string, error) {
	return r.Codes.Issue(ctx, a.ID, model.PurposeEmailConfirmation, r.ConfirmationTTL)
}

// Confirm consumes a confirmation code and marks the email confirmed.
func (r *UserRepo) Confirm(ctx context.Context, a *model.Account, code string) error {
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := r.Codes.ConsumeTx(ctx, tx, a.ID, model.PurposeEmailConfirmation, code); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE accounts SET email_confirmed=1, updated_at=CURRENT_TIMESTAMP WHERE id=? AND email_confirmed=0", a.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &StoreError{Err: ErrConflict, Details: []string{"Email is already confirmed."}}
		}
		return nil
	})
	if errors.Is(err, ErrInvalidCode) {
		return &StoreError{Err: ErrInvalidCode, Details: []string{"Invalid token."}}
	}
	if err != nil {
		return err
	}
	a.EmailConfirmed = true
	return nil
}

// IssueResetCode returns a one-time password reset code.
func (r *UserRepo) IssueResetCode(ctx context.Context, a *model.Account) (string, error) {
	return r.Codes.Issue(ctx, a.ID, model.PurposePasswordReset, r.ResetTTL)
}

// ResetPassword consumes a reset code and stores the new password.
func (r *UserRepo) ResetPassword(ctx context.Context, a *model.Account, code, newPassword string) error {
	hash, err := r.hashNewPassword(newPassword)
	if err != nil {
		return err
	}
	err = withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := r.Codes.ConsumeTx(ctx, tx, a.ID, model.PurposePasswordReset, code); err != nil {
			return err
		}
		return r.setPasswordHash(ctx, tx, a.ID, hash)
	})
	if errors.Is(err, ErrInvalidCode) {
		return &StoreError{Err: ErrInvalidCode, Details: []string{"Invalid token."}}
	}
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// List returns one page of accounts ordered by creation time plus the
// total number of accounts.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]*model.Account, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at, id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *UserRepo) hashNewPassword(password string) (string, error) {
	if p := validation.PasswordProblems(password); len(p) > 0 {
		return "", &StoreError{Err: ErrInvalidPassword, Fields: map[string][]string{"newPassword": p}}
	}
	return utils.HashPassword(password, r.Cost)
}

func (r *UserRepo) setPasswordHash(ctx context.Context, q DBTX, id, hash string) error {
	res, err := q.ExecContext(ctx,
		"UPDATE accounts SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
