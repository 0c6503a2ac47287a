package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// statements splits the embedded schema on ";".  The schema holds no
// string literals or procedures, so the naive split is enough.
func statements() []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates the tables that do not exist yet.  It never alters or
// drops anything.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
