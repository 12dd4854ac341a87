package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

func ptr(s string) *string { return &s }

func TestStaging_InsertAndListOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New().Staging()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertBatch(ctx, []*domain.StagingBookmark{
		{UserID: "u1", SourceID: "b", Title: ptr("B"), CreatedAt: base.Add(time.Minute)},
		{UserID: "u1", SourceID: "a", Title: ptr("A"), CreatedAt: base},
		{UserID: "u2", SourceID: "c", Title: ptr("C"), CreatedAt: base},
	})
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	rows, _ := repo.ListUnorganized(ctx, "u1")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows for u1, got %d", len(rows))
	}
	if rows[0].SourceID != "a" || rows[1].SourceID != "b" {
		t.Errorf("rows should be oldest first, got %s, %s", rows[0].SourceID, rows[1].SourceID)
	}
}

func TestStaging_ReimportKeepsOrganized(t *testing.T) {
	ctx := context.Background()
	repo := New().Staging()

	_, _ = repo.InsertBatch(ctx, []*domain.StagingBookmark{{UserID: "u1", SourceID: "1", Title: ptr("Old")}})
	rows, _ := repo.ListUnorganized(ctx, "u1")
	if err := repo.MarkOrganized(ctx, "u1", rows[0].ID); err != nil {
		t.Fatalf("MarkOrganized() error = %v", err)
	}

	_, _ = repo.InsertBatch(ctx, []*domain.StagingBookmark{{UserID: "u1", SourceID: "1", Title: ptr("New")}})

	if n, _ := repo.CountUnorganized(ctx, "u1"); n != 0 {
		t.Errorf("re-import must not reset is_organized, got %d unorganized", n)
	}
}

func TestStaging_MarkOrganizedWrongUser(t *testing.T) {
	ctx := context.Background()
	repo := New().Staging()
	_, _ = repo.InsertBatch(ctx, []*domain.StagingBookmark{{UserID: "u1", SourceID: "1"}})
	rows, _ := repo.ListUnorganized(ctx, "u1")

	if err := repo.MarkOrganized(ctx, "u2", rows[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStaging_PendingUsers(t *testing.T) {
	ctx := context.Background()
	repo := New().Staging()
	_, _ = repo.InsertBatch(ctx, []*domain.StagingBookmark{
		{UserID: "zoe", SourceID: "1"},
		{UserID: "adam", SourceID: "1"},
		{UserID: "adam", SourceID: "2"},
		{UserID: "done", SourceID: "1"},
	})
	rows, _ := repo.ListUnorganized(ctx, "done")
	_ = repo.MarkOrganized(ctx, "done", rows[0].ID)

	users, err := repo.PendingUsers(ctx)
	if err != nil {
		t.Fatalf("PendingUsers() error = %v", err)
	}
	if len(users) != 2 || users[0] != "adam" || users[1] != "zoe" {
		t.Errorf("PendingUsers() = %v, want [adam zoe]", users)
	}
}

func TestCanonical_UpsertDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := New().Canonical()

	first, created, err := repo.Upsert(ctx, &domain.CanonicalBookmark{
		UserID: "u1", Title: "T", URL: "https://a.com", SourceType: "raindrop", SourceID: "1",
		Description: ptr("kept"),
	})
	if err != nil || !created {
		t.Fatalf("first Upsert() = %v, %v", created, err)
	}

	second, created, err := repo.Upsert(ctx, &domain.CanonicalBookmark{
		UserID: "u1", Title: "T2", URL: "https://a.com", SourceType: "raindrop", SourceID: "1",
	})
	if err != nil || created {
		t.Fatalf("second Upsert() = %v, %v", created, err)
	}
	if second.ID != first.ID || second.Title != "T2" || domain.Deref(second.Description) != "kept" {
		t.Errorf("unexpected merged row %+v", second)
	}

	// Same source id under another source type is a different logical bookmark.
	_, created, _ = repo.Upsert(ctx, &domain.CanonicalBookmark{
		UserID: "u1", Title: "T", URL: "https://a.com", SourceType: "manual", SourceID: "1",
	})
	if !created {
		t.Error("different source_type should create a new row")
	}

	list, _ := repo.ListByUser(ctx, "u1")
	if len(list) != 2 {
		t.Errorf("expected 2 rows, got %d", len(list))
	}
}

func TestCanonical_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := New().Canonical()
	b, _, _ := repo.Upsert(ctx, &domain.CanonicalBookmark{UserID: "u1", Title: "T", URL: "https://a.com", SourceType: "manual", SourceID: "1", Tags: []string{"x"}})

	b.Tags[0] = "mutated"
	got, _ := repo.GetByID(ctx, "u1", b.ID)
	if got.Tags[0] != "x" {
		t.Error("callers must not be able to mutate stored rows")
	}
}

func TestCanonical_UpdateConfidenceAndInsights(t *testing.T) {
	ctx := context.Background()
	repo := New().Canonical()
	b, _, _ := repo.Upsert(ctx, &domain.CanonicalBookmark{UserID: "u1", Title: "T", URL: "https://a.com", SourceType: "manual", SourceID: "1"})

	if err := repo.UpdateConfidence(ctx, "u1", b.ID, &domain.Assessment{OverallScore: 72}, 3); err != nil {
		t.Fatalf("UpdateConfidence() error = %v", err)
	}
	b.Title = "AI title"
	if err := repo.UpdateInsights(ctx, "u1", b.ID, b); err != nil {
		t.Fatalf("UpdateInsights() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "u1", b.ID)
	if got.IntelligenceLevel != 3 || got.ConfidenceScores.OverallScore != 72 || got.Title != "AI title" {
		t.Errorf("unexpected row %+v", got)
	}

	if err := repo.UpdateConfidence(ctx, "u2", b.ID, &domain.Assessment{}, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = s.Canonical().Upsert(ctx, &domain.CanonicalBookmark{UserID: "u1", Title: "T", URL: "https://a.com", SourceType: "raindrop", SourceID: "same"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Canonical().ListByUser(ctx, "u1")
		}()
	}
	wg.Wait()

	list, _ := s.Canonical().ListByUser(ctx, "u1")
	if len(list) != 1 {
		t.Errorf("concurrent upserts of one key should yield one row, got %d", len(list))
	}
}
