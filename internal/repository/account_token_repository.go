package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/utils"
)

// AccountTokenRepo persists and consumes one-time codes (single
// 'token_hash' column, raw codes are never stored).
type AccountTokenRepo struct{ DB *sql.DB }

func NewAccountTokenRepo(db *sql.DB) *AccountTokenRepo { return &AccountTokenRepo{DB: db} }

// Issue creates a fresh code for the account and purpose and returns the
// raw value.  Earlier unused codes of the same purpose stop working.
func (r *AccountTokenRepo) Issue(ctx context.Context, accountID string, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	code, err := utils.NewOneTimeCode(ttl)
	if err != nil {
		return "", err
	}
	err = withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := r.revokeAll(ctx, tx, accountID, purpose); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO account_tokens (account_id, purpose, token_hash, expires_at) VALUES (?,?,?,?)",
			accountID, string(purpose), utils.HashCode(code.Raw), code.Exp)
		return err
	})
	if err != nil {
		return "", err
	}
	return code.Raw, nil
}

// ConsumeTx marks a matching code as used.  It returns ErrInvalidCode when
// the code is unknown, revoked, used or expired.
func (r *AccountTokenRepo) ConsumeTx(ctx context.Context, q DBTX, accountID string, purpose model.TokenPurpose, raw string) error {
	var (
		id        uint64
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, expires_at, used_at FROM account_tokens WHERE account_id=? AND purpose=? AND token_hash=? LIMIT 1 FOR UPDATE",
		accountID, string(purpose), utils.HashCode(raw)).Scan(&id, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidCode
		}
		return err
	}
	if usedAt.Valid || !time.Now().UTC().Before(expiresAt) {
		return ErrInvalidCode
	}
	res, err := q.ExecContext(ctx,
		"UPDATE account_tokens SET used_at=UTC_TIMESTAMP() WHERE id=? AND used_at IS NULL", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidCode
	}
	return nil
}

// revokeAll invalidates every unused code of a purpose for the account.
func (r *AccountTokenRepo) revokeAll(ctx context.Context, q DBTX, accountID string, purpose model.TokenPurpose) error {
	_, err := q.ExecContext(ctx,
		"UPDATE account_tokens SET used_at=UTC_TIMESTAMP() WHERE account_id=? AND purpose=? AND used_at IS NULL",
		accountID, string(purpose))
	return err
}
