package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the thought tables and indexes if they don't exist.
//
// Version numbers are unique per thought, but the check is deferred to
// commit so a transaction can renumber versions through transient
// duplicates.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto"`); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	p := tables.Prefix
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Thoughts + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			owner_id UUID NOT NULL,
			is_private BOOLEAN NOT NULL DEFAULT TRUE,
			share_token TEXT UNIQUE,
			selected_version_id UUID,
			modified_by UUID NOT NULL,
			modified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Versions + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			thought_id UUID NOT NULL REFERENCES ` + tables.Thoughts + `(id) ON DELETE CASCADE,
			content JSONB NOT NULL,
			version_number INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			change_label TEXT,
			is_core BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			modified_by UUID NOT NULL,
			parent_version_number INTEGER,
			CONSTRAINT ` + p + `thought_versions_number_unique
				UNIQUE (thought_id, version_number) DEFERRABLE INITIALLY DEFERRED
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Collaborators + ` (
			thought_id UUID NOT NULL REFERENCES ` + tables.Thoughts + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (thought_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + p + `thoughts_owner ON ` + tables.Thoughts + `(owner_id, modified_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + p + `collaborators_user ON ` + tables.Collaborators + `(user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + p + `thought_versions_core ON ` + tables.Versions + `(thought_id) WHERE is_core`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// DropTables drops the thought tables, dependents first.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Collaborators, tables.Versions, tables.Thoughts} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
