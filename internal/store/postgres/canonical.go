package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/utils"
)

// CanonicalRepository reads and writes canonical_bookmarks.
type CanonicalRepository struct {
	db *sql.DB
}

const canonicalColumns = `id, user_id, title, url, resolved_url, description, image_url, image_alt,
	site_name, tags, source_type, source_id, source_metadata, is_organized, confidence_scores,
	intelligence_level, created_at, updated_at`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindByDedupKey returns domain.ErrNotFound when no row matches.
func (r *CanonicalRepository) FindByDedupKey(ctx context.Context, key domain.DedupKey) (*domain.CanonicalBookmark, error) {
	return selectByKey(ctx, r.db, key, false)
}

// GetByID returns the row only if it belongs to userID.
func (r *CanonicalRepository) GetByID(ctx context.Context, userID, id string) (*domain.CanonicalBookmark, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+canonicalColumns+` FROM canonical_bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
	b, err := scanCanonical(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark %s: %w", id, err)
	}
	return b, nil
}

// ListByUser returns the user's bookmarks, newest first.
func (r *CanonicalRepository) ListByUser(ctx context.Context, userID string) ([]*domain.CanonicalBookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+canonicalColumns+` FROM canonical_bookmarks WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer utils.Close(rows)

	out := []*domain.CanonicalBookmark{}
	for rows.Next() {
		b, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	return out, nil
}

// Upsert inserts b or merges it into the existing row with the same dedup key, in one
// transaction. The existing row is locked with SELECT ... FOR UPDATE; a concurrent
// insert that wins the race is caught by ON CONFLICT DO NOTHING and merged into.
// The returned bool is true when a new row was created.
func (r *CanonicalRepository) Upsert(ctx context.Context, b *domain.CanonicalBookmark) (*domain.CanonicalBookmark, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	existing, err := selectByKey(ctx, tx, b.Key(), true)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		inserted, err := insertCanonical(ctx, tx, b, now)
		if err != nil {
			return nil, false, err
		}
		if inserted {
			if err := tx.Commit(); err != nil {
				return nil, false, fmt.Errorf("failed to commit insert: %w", err)
			}
			return b, true, nil
		}
		// Lost the race to another writer; merge into its row instead.
		existing, err = selectByKey(ctx, tx, b.Key(), true)
		if err != nil {
			return nil, false, err
		}
	case err != nil:
		return nil, false, err
	}

	existing.MergeUpsert(b)
	existing.UpdatedAt = now
	if err := updateCanonical(ctx, tx, existing); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit update: %w", err)
	}
	return existing, false, nil
}

// UpdateConfidence writes the score columns only.
func (r *CanonicalRepository) UpdateConfidence(ctx context.Context, userID, id string, a *domain.Assessment, level int) error {
	scores, err := marshalNullable(a)
	if err != nil {
		return fmt.Errorf("failed to marshal confidence scores: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE canonical_bookmarks
		SET confidence_scores = $1, intelligence_level = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4`, scores, level, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update confidence for %s: %w", id, err)
	}
	return expectOne(res, id)
}

// UpdateInsights writes the AI-insight columns of b. Callers validate the merged row first.
func (r *CanonicalRepository) UpdateInsights(ctx context.Context, userID, id string, b *domain.CanonicalBookmark) error {
	meta, err := marshalNullable(b.SourceMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal source metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE canonical_bookmarks
		SET title = $1, description = $2, tags = $3, source_metadata = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6`,
		b.Title, b.Description, pq.Array(nonNilTags(b.Tags)), meta, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update insights for %s: %w", id, err)
	}
	return expectOne(res, id)
}

func selectByKey(ctx context.Context, q queryer, key domain.DedupKey, lock bool) (*domain.CanonicalBookmark, error) {
	query := `SELECT ` + canonicalColumns + ` FROM canonical_bookmarks
		WHERE user_id = $1 AND source_type = $2 AND source_id = $3`
	if lock {
		query += ` FOR UPDATE`
	}
	b, err := scanCanonical(q.QueryRowContext(ctx, query, key.UserID, key.SourceType, key.SourceID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up bookmark %s/%s: %w", key.SourceType, key.SourceID, err)
	}
	return b, nil
}

func insertCanonical(ctx context.Context, tx *sql.Tx, b *domain.CanonicalBookmark, now time.Time) (bool, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Tags = nonNilTags(b.Tags)

	meta, err := marshalNullable(b.SourceMetadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal source metadata: %w", err)
	}
	scores, err := marshalNullable(b.ConfidenceScores)
	if err != nil {
		return false, fmt.Errorf("failed to marshal confidence scores: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO canonical_bookmarks (`+canonicalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id, source_type, source_id) DO NOTHING`,
		b.ID, b.UserID, b.Title, b.URL, b.ResolvedURL, b.Description, b.ImageURL, b.ImageAlt,
		b.SiteName, pq.Array(b.Tags), b.SourceType, b.SourceID, meta, b.IsOrganized, scores,
		b.IntelligenceLevel, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert bookmark: %w", err)
	}
	return n == 1, nil
}

func updateCanonical(ctx context.Context, tx *sql.Tx, b *domain.CanonicalBookmark) error {
	meta, err := marshalNullable(b.SourceMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal source metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE canonical_bookmarks SET
			title = $1, url = $2, resolved_url = $3, description = $4, image_url = $5,
			image_alt = $6, site_name = $7, tags = $8, source_metadata = $9, is_organized = $10,
			updated_at = $11
		WHERE id = $12`,
		b.Title, b.URL, b.ResolvedURL, b.Description, b.ImageURL, b.ImageAlt, b.SiteName,
		pq.Array(nonNilTags(b.Tags)), meta, b.IsOrganized, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update bookmark %s: %w", b.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCanonical(s scanner) (*domain.CanonicalBookmark, error) {
	var b domain.CanonicalBookmark
	var resolved, description, imageURL, imageAlt, siteName sql.NullString
	var tags pq.StringArray
	var meta, scores []byte

	err := s.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &resolved, &description, &imageURL, &imageAlt,
		&siteName, &tags, &b.SourceType, &b.SourceID, &meta, &b.IsOrganized, &scores,
		&b.IntelligenceLevel, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	b.ResolvedURL = nullString(resolved)
	b.Description = nullString(description)
	b.ImageURL = nullString(imageURL)
	b.ImageAlt = nullString(imageAlt)
	b.SiteName = nullString(siteName)
	b.Tags = nonNilTags(tags)

	if len(meta) > 0 {
		var m domain.SourceMetadata
		if err := json.Unmarshal(meta, &m); err != nil {
			return nil, fmt.Errorf("failed to decode source_metadata: %w", err)
		}
		b.SourceMetadata = &m
	}
	if len(scores) > 0 {
		var a domain.Assessment
		if err := json.Unmarshal(scores, &a); err != nil {
			return nil, fmt.Errorf("failed to decode confidence_scores: %w", err)
		}
		b.ConfidenceScores = &a
	}
	return &b, nil
}

// marshalNullable returns nil (SQL NULL) for a nil pointer. JSON is sent as text:
// lib/pq encodes []byte as bytea, which jsonb rejects.
func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
