package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the tables used by the repositories.
const Schema = `
CREATE TABLE IF NOT EXISTS media_resource (
	id            VARCHAR(64) PRIMARY KEY,
	type          VARCHAR(50) NOT NULL,
	subtype       VARCHAR(50) NOT NULL,
	key           VARCHAR(1024) NOT NULL,
	type_id       VARCHAR(64),
	url           TEXT NOT NULL DEFAULT '',
	file_name     VARCHAR(1024) NOT NULL DEFAULT '',
	mime_type     VARCHAR(255) NOT NULL DEFAULT '',
	size_bytes    BIGINT NOT NULL DEFAULT 0,
	created_by_id VARCHAR(64) NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT unique_media_key UNIQUE (key)
);

CREATE INDEX IF NOT EXISTS media_resource_owner_idx ON media_resource (type, subtype, type_id);

CREATE TABLE IF NOT EXISTS post (
	id                VARCHAR(64) PRIMARY KEY,
	title             TEXT NOT NULL,
	short_description TEXT NOT NULL DEFAULT '',
	resource          JSONB,
	content           JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_by_id     VARCHAR(64) NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "media") {
				return fmt.Errorf("media key already exists: %w", err)
			}
			return fmt.Errorf("duplicate entry in %s: %w", operation, err)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// likePattern turns a literal search term into an ILIKE substring pattern.
func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(search)
	return "%" + escaped + "%"
}
