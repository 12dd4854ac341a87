package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/utils"
)

// StagingRepository reads and writes staging_bookmarks.
type StagingRepository struct {
	db *sql.DB
}

const stagingColumns = `id, user_id, source_id, title, link, tags, created_at, is_organized`

// ListUnorganized returns the user's unorganized rows, oldest first.
func (r *StagingRepository) ListUnorganized(ctx context.Context, userID string) ([]*domain.StagingBookmark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stagingColumns+`
		FROM staging_bookmarks
		WHERE user_id = $1 AND is_organized = FALSE
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unorganized bookmarks: %w", err)
	}
	defer utils.Close(rows)

	out := []*domain.StagingBookmark{}
	for rows.Next() {
		var (
			b     domain.StagingBookmark
			title sql.NullString
			link  sql.NullString
			tags  pq.StringArray
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.SourceID, &title, &link, &tags, &b.CreatedAt, &b.IsOrganized); err != nil {
			return nil, fmt.Errorf("failed to scan staging bookmark: %w", err)
		}
		b.Title = nullString(title)
		b.Link = nullString(link)
		b.Tags = []string(tags)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staging bookmarks: %w", err)
	}
	return out, nil
}

// CountUnorganized returns how many rows are still waiting for promotion.
func (r *StagingRepository) CountUnorganized(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staging_bookmarks WHERE user_id = $1 AND is_organized = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unorganized bookmarks: %w", err)
	}
	return n, nil
}

// PendingUsers lists the users that still have unorganized rows.
func (r *StagingRepository) PendingUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM staging_bookmarks WHERE is_organized = FALSE ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	defer utils.Close(rows)

	users := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan pending user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending users: %w", err)
	}
	return users, nil
}

// MarkOrganized flips is_organized for one row.
func (r *StagingRepository) MarkOrganized(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE staging_bookmarks SET is_organized = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark bookmark %d organized: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to mark bookmark %d organized: %w", id, domain.ErrNotFound)
	}
	return nil
}

// InsertBatch writes rows in a single transaction. A row that already exists for
// (user_id, source_id) gets its title, link and tags refreshed; is_organized is never
// touched. Any failure rolls back the whole batch.
func (r *StagingRepository) InsertBatch(ctx context.Context, batch []*domain.StagingBookmark) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO staging_bookmarks (user_id, source_id, title, link, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			link = EXCLUDED.link,
			tags = EXCLUDED.tags`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare staging insert: %w", err)
	}
	defer utils.Close(stmt)

	for _, b := range batch {
		created := b.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := stmt.ExecContext(ctx, b.UserID, b.SourceID, b.Title, b.Link, pq.Array(tags), created); err != nil {
			return 0, fmt.Errorf("failed to insert staging bookmark %s: %w", b.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit staging batch: %w", err)
	}
	return len(batch), nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
