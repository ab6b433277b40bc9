package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSchema creates the tables used by the publisher if they are
// missing. Safe to call at startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS linked_accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			provider_user_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ,
			scopes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			page_id TEXT,
			page_name TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, platform, provider_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS publish_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			platforms JSONB NOT NULL DEFAULT '[]',
			schedule_time TIMESTAMPTZ,
			status TEXT NOT NULL,
			media_items JSONB NOT NULL DEFAULT '[]',
			results JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_user ON publish_records (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS oauth_states (
			token TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema failed: %w", err)
		}
	}
	return nil
}
