// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the auth
// service and the handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert hits the unique index on
// accounts.email.  It is the final word on duplicate registrations.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as assigning a role to an account that was
// deleted meanwhile.
var ErrConflict = errors.New("conflict")

// ErrInvalidPassword is returned when a new password breaks the
// complexity policy.
var ErrInvalidPassword = errors.New("password does not meet requirements")

// ErrInvalidCode is returned when a one-time code is unknown, expired or
// already used.
var ErrInvalidCode = errors.New("invalid code")

// StoreError is a rejected write that carries messages meant for the
// end user: either flat Details or per-field Fields.
type StoreError struct {
	Err     error
	Details []string
	Fields  map[string][]string
}

func (e *StoreError) Error() string {
	msg := e.Err.Error()
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Problems returns the field map when present, otherwise the flat list.
func (e *StoreError) Problems() any {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return e.Details
}

// MySQL error numbers the repositories react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool { return mysqlErrNumber(err) == mysqlDuplicateEntry }

func isMissingReference(err error) bool { return mysqlErrNumber(err) == mysqlNoReferencedRow }
