package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	Up      string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_staging_bookmarks",
		Up: `
			CREATE TABLE IF NOT EXISTS staging_bookmarks (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL,
				source_id TEXT NOT NULL,
				title TEXT,
				link TEXT,
				tags TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				is_organized BOOLEAN NOT NULL DEFAULT FALSE,
				CONSTRAINT staging_bookmarks_user_source_key UNIQUE (user_id, source_id)
			);
			CREATE INDEX IF NOT EXISTS idx_staging_bookmarks_unorganized
				ON staging_bookmarks (user_id, is_organized, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create_canonical_bookmarks",
		Up: `
			CREATE TABLE IF NOT EXISTS canonical_bookmarks (
				id UUID PRIMARY KEY,
				user_id TEXT NOT NULL,
				title VARCHAR(1000) NOT NULL,
				url VARCHAR(2048) NOT NULL,
				resolved_url VARCHAR(2048),
				description VARCHAR(5000),
				image_url VARCHAR(2048),
				image_alt VARCHAR(500),
				site_name VARCHAR(200),
				tags TEXT[] NOT NULL DEFAULT '{}',
				source_type VARCHAR(50) NOT NULL,
				source_id VARCHAR(255) NOT NULL,
				source_metadata JSONB,
				is_organized BOOLEAN NOT NULL DEFAULT FALSE,
				confidence_scores JSONB,
				intelligence_level INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT canonical_bookmarks_dedup_key UNIQUE (user_id, source_type, source_id)
			);
			CREATE INDEX IF NOT EXISTS idx_canonical_bookmarks_user_created
				ON canonical_bookmarks (user_id, created_at DESC);
		`,
	},
}

// Migrate applies every pending migration. Running it twice is a no-op.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS canon_schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema version table: %w", err)
	}

	current, err := currentVersion(ctx, db.conn)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if m.Version <= current {
			continue
		}
		if err := runMigration(ctx, db.conn, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func currentVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var v sql.NullInt64
	err := conn.QueryRowContext(ctx, `SELECT MAX(version) FROM canon_schema_version`).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return int(v.Int64), nil
}

func runMigration(ctx context.Context, conn *sql.DB, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("failed to apply migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO canon_schema_version (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
