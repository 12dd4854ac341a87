package confidence

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

type fakeRepo struct {
	rows    map[string]*domain.CanonicalBookmark
	updated map[string]int
	failing bool
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id string) (*domain.CanonicalBookmark, error) {
	b, ok := f.rows[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) UpdateConfidence(_ context.Context, _, id string, a *domain.Assessment, level int) error {
	if f.failing {
		return errors.New("connection reset")
	}
	if f.updated == nil {
		f.updated = map[string]int{}
	}
	f.updated[id] = level
	f.rows[id].ConfidenceScores = a
	f.rows[id].IntelligenceLevel = level
	return nil
}

func TestService_Rescore(t *testing.T) {
	desc := "A description"
	repo := &fakeRepo{rows: map[string]*domain.CanonicalBookmark{
		"b1": {
			ID:          "b1",
			UserID:      "u1",
			Title:       "Title",
			Description: &desc,
			Tags:        []string{"go"},
			SourceType:  domain.SourceTypeRaindrop,
			SourceID:    "42",
		},
	}}
	svc := NewService(repo, fixedScorer(), logger.Nop())

	got, err := svc.Rescore(context.Background(), "u1", "b1", Context{
		ValidationResults: &ValidationResults{CrossPlatformMatch: true},
	})
	if err != nil {
		t.Fatalf("Rescore() error = %v", err)
	}

	// raindrop row without enrichment defaults to direct_api: 40 + 16.25 + 20 + 15
	if got.ConfidenceScores == nil || got.ConfidenceScores.OverallScore != 91 {
		t.Fatalf("unexpected assessment %+v", got.ConfidenceScores)
	}
	if got.IntelligenceLevel != 5 {
		t.Errorf("IntelligenceLevel = %d, want 5", got.IntelligenceLevel)
	}
	if repo.updated["b1"] != 5 {
		t.Errorf("repository should have stored level 5, got %d", repo.updated["b1"])
	}
}

func TestService_RescoreNotFound(t *testing.T) {
	svc := NewService(&fakeRepo{rows: map[string]*domain.CanonicalBookmark{}}, nil, logger.Nop())

	_, err := svc.Rescore(context.Background(), "u1", "missing", Context{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_RescoreStoreFailure(t *testing.T) {
	repo := &fakeRepo{
		rows:    map[string]*domain.CanonicalBookmark{"b1": {ID: "b1", UserID: "u1", Title: "T"}},
		failing: true,
	}
	svc := NewService(repo, fixedScorer(), logger.Nop())

	if _, err := svc.Rescore(context.Background(), "u1", "b1", Context{}); err == nil {
		t.Error("expected an error when the store fails")
	}
}

func TestDefaultSourceType(t *testing.T) {
	enriched := &domain.SourceMetadata{MetadataEnriched: domain.Bool(true)}

	tests := []struct {
		name string
		b    *domain.CanonicalBookmark
		want SourceType
	}{
		{"raindrop", &domain.CanonicalBookmark{SourceType: domain.SourceTypeRaindrop}, SourceDirectAPI},
		{"raindrop enriched", &domain.CanonicalBookmark{SourceType: domain.SourceTypeRaindrop, SourceMetadata: enriched}, SourceValidatedScrape},
		{"manual", &domain.CanonicalBookmark{SourceType: domain.SourceTypeManual}, SourceUserSupplied},
		{"share", &domain.CanonicalBookmark{SourceType: domain.SourceTypeShare}, SourceUserSupplied},
		{"other", &domain.CanonicalBookmark{SourceType: "instagram"}, SourceInferred},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultSourceType(tt.b); got != tt.want {
				t.Errorf("DefaultSourceType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInputFromCanonical_Extras(t *testing.T) {
	b := &domain.CanonicalBookmark{
		Title: "T",
		SourceMetadata: &domain.SourceMetadata{Extras: map[string]any{
			ExtraEngagement:      map[string]any{"likes": float64(10)},
			ExtraPlatformContext: "feed",
		}},
	}

	in := InputFromCanonical(b)
	if m, ok := in.Engagement.(map[string]any); !ok || len(m) != 1 {
		t.Errorf("engagement should be read from extras, got %v", in.Engagement)
	}
	if in.PlatformContext != "feed" {
		t.Errorf("string platform context should be kept, got %v", in.PlatformContext)
	}

	a := NewScorer().Score(in, Context{})
	if a.Breakdown.Completeness != 50 {
		t.Errorf("Completeness = %v, want 50", a.Breakdown.Completeness)
	}
}
