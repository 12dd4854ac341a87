// Package memory provides in-process staging and canonical repositories. They back
// the dev mode (no database configured) and the tests of every package above the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

type stagingKey struct {
	userID   string
	sourceID string
}

// Store holds both tables behind one lock. Values are copied in and out so callers
// never share memory with the store.
type Store struct {
	mu sync.RWMutex

	staging     map[int64]*domain.StagingBookmark // ID -> row
	stagingKeys map[stagingKey]int64              // (user, source_id) -> ID
	nextID      int64

	canonical     map[string]*domain.CanonicalBookmark // ID -> row
	canonicalKeys map[domain.DedupKey]string           // dedup key -> ID

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		staging:       make(map[int64]*domain.StagingBookmark),
		stagingKeys:   make(map[stagingKey]int64),
		canonical:     make(map[string]*domain.CanonicalBookmark),
		canonicalKeys: make(map[domain.DedupKey]string),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Staging returns the staging view of the store.
func (s *Store) Staging() *StagingRepository { return &StagingRepository{s: s} }

// Canonical returns the canonical view of the store.
func (s *Store) Canonical() *CanonicalRepository { return &CanonicalRepository{s: s} }

// ─────────────────────────────────────────────────────────────────
// Staging
// ─────────────────────────────────────────────────────────────────

// StagingRepository mirrors postgres.StagingRepository.
type StagingRepository struct{ s *Store }

// ListUnorganized returns the user's unorganized rows, oldest first.
func (r *StagingRepository) ListUnorganized(_ context.Context, userID string) ([]*domain.StagingBookmark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.StagingBookmark{}
	for _, b := range r.s.staging {
		if b.UserID == userID && !b.IsOrganized {
			out = append(out, copyStaging(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountUnorganized returns how many rows are still waiting for promotion.
func (r *StagingRepository) CountUnorganized(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, b := range r.s.staging {
		if b.UserID == userID && !b.IsOrganized {
			n++
		}
	}
	return n, nil
}

// PendingUsers lists the users that still have unorganized rows, sorted.
func (r *StagingRepository) PendingUsers(context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := map[string]bool{}
	users := []string{}
	for _, b := range r.s.staging {
		if !b.IsOrganized && !seen[b.UserID] {
			seen[b.UserID] = true
			users = append(users, b.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// MarkOrganized flips is_organized for one row.
func (r *StagingRepository) MarkOrganized(_ context.Context, userID string, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.staging[id]
	if !ok || b.UserID != userID {
		return domain.ErrNotFound
	}
	b.IsOrganized = true
	return nil
}

// InsertBatch upserts on (user, source_id). Existing rows keep their is_organized flag.
func (r *StagingRepository) InsertBatch(_ context.Context, batch []*domain.StagingBookmark) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, in := range batch {
		key := stagingKey{userID: in.UserID, sourceID: in.SourceID}
		if id, ok := r.s.stagingKeys[key]; ok {
			cur := r.s.staging[id]
			cur.Title = in.Title
			cur.Link = in.Link
			cur.Tags = append([]string(nil), in.Tags...)
			continue
		}

		r.s.nextID++
		b := copyStaging(in)
		b.ID = r.s.nextID
		b.IsOrganized = false
		if b.CreatedAt.IsZero() {
			b.CreatedAt = r.s.now()
		}
		r.s.staging[b.ID] = b
		r.s.stagingKeys[key] = b.ID
	}
	return len(batch), nil
}

// ─────────────────────────────────────────────────────────────────
// Canonical
// ─────────────────────────────────────────────────────────────────

// CanonicalRepository mirrors postgres.CanonicalRepository.
type CanonicalRepository struct{ s *Store }

// FindByDedupKey returns domain.ErrNotFound when no row matches.
func (r *CanonicalRepository) FindByDedupKey(_ context.Context, key domain.DedupKey) (*domain.CanonicalBookmark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.canonicalKeys[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCanonical(r.s.canonical[id]), nil
}

// GetByID returns the row only if it belongs to userID.
func (r *CanonicalRepository) GetByID(_ context.Context, userID, id string) (*domain.CanonicalBookmark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.canonical[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return copyCanonical(b), nil
}

// ListByUser returns the user's bookmarks, newest first.
func (r *CanonicalRepository) ListByUser(_ context.Context, userID string) ([]*domain.CanonicalBookmark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.CanonicalBookmark{}
	for _, b := range r.s.canonical {
		if b.UserID == userID {
			out = append(out, copyCanonical(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Upsert inserts b or merges it into the row with the same dedup key.
func (r *CanonicalRepository) Upsert(_ context.Context, b *domain.CanonicalBookmark) (*domain.CanonicalBookmark, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	key := b.Key()

	if id, ok := r.s.canonicalKeys[key]; ok {
		cur := r.s.canonical[id]
		cur.MergeUpsert(copyCanonical(b))
		cur.UpdatedAt = now
		return copyCanonical(cur), false, nil
	}

	row := copyCanonical(b)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Tags == nil {
		row.Tags = []string{}
	}
	r.s.canonical[row.ID] = row
	r.s.canonicalKeys[key] = row.ID
	return copyCanonical(row), true, nil
}

// UpdateConfidence writes the score fields only.
func (r *CanonicalRepository) UpdateConfidence(_ context.Context, userID, id string, a *domain.Assessment, level int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.canonical[id]
	if !ok || b.UserID != userID {
		return domain.ErrNotFound
	}
	cp := *a
	b.ConfidenceScores = &cp
	b.IntelligenceLevel = level
	b.UpdatedAt = r.s.now()
	return nil
}

// UpdateInsights writes title, description, tags and source_metadata of b.
func (r *CanonicalRepository) UpdateInsights(_ context.Context, userID, id string, b *domain.CanonicalBookmark) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.canonical[id]
	if !ok || cur.UserID != userID {
		return domain.ErrNotFound
	}
	in := copyCanonical(b)
	cur.Title = in.Title
	cur.Description = in.Description
	cur.Tags = in.Tags
	cur.SourceMetadata = in.SourceMetadata
	cur.UpdatedAt = r.s.now()
	return nil
}

func copyStaging(b *domain.StagingBookmark) *domain.StagingBookmark {
	cp := *b
	cp.Tags = append([]string(nil), b.Tags...)
	return &cp
}

func copyCanonical(b *domain.CanonicalBookmark) *domain.CanonicalBookmark {
	cp := *b
	if b.Tags != nil {
		cp.Tags = append([]string{}, b.Tags...)
	}
	if b.SourceMetadata != nil {
		m := *b.SourceMetadata
		if b.SourceMetadata.Extras != nil {
			m.Extras = make(map[string]any, len(b.SourceMetadata.Extras))
			for k, v := range b.SourceMetadata.Extras {
				m.Extras[k] = v
			}
		}
		cp.SourceMetadata = &m
	}
	if b.ConfidenceScores != nil {
		a := *b.ConfidenceScores
		cp.ConfidenceScores = &a
	}
	return &cp
}
