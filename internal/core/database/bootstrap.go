package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// EnsureBootstrapped creates the pgvector extension and one chunk table
// per index. Table names come from configuration, so they are validated
// before being interpolated into DDL.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, embedDim int, tables ...string) error {
	if embedDim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", embedDim)
	}

	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctxBoot, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	for _, table := range tables {
		if err := validateTableName(table); err != nil {
			return err
		}
		ddl := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				chunk_id    TEXT PRIMARY KEY,
				chunk       TEXT NOT NULL,
				embedding   vector(%d),
				metadata    TEXT,
				parent_id   TEXT NOT NULL,
				title       TEXT NOT NULL,
				uploader    TEXT,
				upload_time TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS %s_parent_id_idx ON %s (parent_id);
			CREATE INDEX IF NOT EXISTS %s_title_idx ON %s (title);
		`, table, embedDim, table, table, table, table)

		if _, err := db.ExecContext(ctxBoot, ddl); err != nil {
			return fmt.Errorf("bootstrap table %s: %w", table, err)
		}
	}
	return nil
}
