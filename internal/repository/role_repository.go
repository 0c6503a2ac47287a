package repository

import (
	"context"
	"database/sql"
)

// RoleRepo manages the `roles` table and the `account_roles` join table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// Exists reports whether a role with this exact name exists.
func (r *RoleRepo) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM roles WHERE name=?", name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a role.  Losing a creation race to another request is
// not an error: the role exists either way.
func (r *RoleRepo) Create(ctx context.Context, name string) error {
	_, err := r.DB.ExecContext(ctx, "INSERT INTO roles (name) VALUES (?)", name)
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}

// Assign grants the role to the account.  Assigning a role the account
// already holds is a no-op.  A missing role or account yields a
// *StoreError wrapping ErrConflict.
func (r *RoleRepo) Assign(ctx context.Context, accountID, name string) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO account_roles (account_id, role_id) SELECT ?, id FROM roles WHERE name=?",
		accountID, name)
	if err != nil {
		switch {
		case isDuplicateKey(err):
			return nil
		case isMissingReference(err):
			return &StoreError{Err: ErrConflict, Details: []string{"Account no longer exists."}}
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StoreError{Err: ErrConflict, Details: []string{"Role " + name + " does not exist."}}
	}
	return nil
}

// Revoke removes the role from the account.  Revoking a role the account
// does not hold is a no-op.
func (r *RoleRepo) Revoke(ctx context.Context, accountID, name string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE ar FROM account_roles ar JOIN roles ro ON ro.id = ar.role_id WHERE ar.account_id=? AND ro.name=?",
		accountID, name)
	return err
}

// RolesFor returns the role names held by the account, sorted by name.
func (r *RoleRepo) RolesFor(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ro.name FROM account_roles ar
		 JOIN roles ro ON ro.id = ar.role_id
		 WHERE ar.account_id = ? ORDER BY ro.name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
