package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the schema for the dialect. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	name := "schema/sqlite.sql"
	if d == MySQL {
		name = "schema/mysql.sql"
	}
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	// executed one by one: the mysql driver rejects multi-statement Exec by default
	for _, stmt := range strings.Split(string(b), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
