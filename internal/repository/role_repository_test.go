package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleRepoWithMock(t *testing.T) (*RoleRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRoleRepo(db), mock
}

func TestRoleRepo_Exists(t *testing.T) {
	repo, mock := newRoleRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM roles WHERE name=?")).
		WithArgs("ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM roles WHERE name=?")).
		WithArgs("GHOST").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))

	ok, err := repo.Exists(context.Background(), "ADMIN")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleRepo_Create_ToleratesDuplicate(t *testing.T) {
	repo, mock := newRoleRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roles (name)")).
		WithArgs("USER").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	assert.NoError(t, repo.Create(context.Background(), "USER"))
}

func TestRoleRepo_Assign(t *testing.T) {
	const q = "INSERT INTO account_roles (account_id, role_id) SELECT ?, id FROM roles WHERE name=?"

	t.Run("granted", func(t *testing.T) {
		repo, mock := newRoleRepoWithMock(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs("id-1", "ADMIN").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Assign(context.Background(), "id-1", "ADMIN"))
	})

	t.Run("already held", func(t *testing.T) {
		repo, mock := newRoleRepoWithMock(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		assert.NoError(t, repo.Assign(context.Background(), "id-1", "ADMIN"))
	})

	t.Run("unknown role", func(t *testing.T) {
		repo, mock := newRoleRepoWithMock(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Assign(context.Background(), "id-1", "GHOST")
		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, []string{"Role GHOST does not exist."}, se.Details)
	})

	t.Run("account gone", func(t *testing.T) {
		repo, mock := newRoleRepoWithMock(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

		err := repo.Assign(context.Background(), "ghost", "ADMIN")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestRoleRepo_RolesFor(t *testing.T) {
	repo, mock := newRoleRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ro.name FROM account_roles ar")).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ADMIN").AddRow("USER"))

	roles, err := repo.RolesFor(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN", "USER"}, roles)
}

func TestRoleRepo_Revoke(t *testing.T) {
	repo, mock := newRoleRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE ar FROM account_roles ar JOIN roles ro")).
		WithArgs("id-1", "ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Revoke(context.Background(), "id-1", "ADMIN"))
	require.NoError(t, mock.ExpectationsWereMet())
}
