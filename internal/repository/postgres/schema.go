package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the post table and its index when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id      TEXT NOT NULL,
			title        VARCHAR(255) NOT NULL DEFAULT 'Untitled',
			content_json JSONB NOT NULL DEFAULT '{}'::jsonb,
			status       TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published')),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %[1]s_user_updated_idx ON %[1]s (user_id, updated_at DESC);
	`, tables.Posts)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// DropSchema removes the post table.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, tables.Posts)); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}
