package confidence

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// Extras keys read from source_metadata when building scorer input.
const (
	ExtraEngagement      = "engagement"
	ExtraPlatformContext = "platform_context"
)

// Repository is the part of the canonical store the Service needs.
type Repository interface {
	GetByID(ctx context.Context, userID, id string) (*domain.CanonicalBookmark, error)
	UpdateConfidence(ctx context.Context, userID, id string, a *domain.Assessment, intelligenceLevel int) error
}

// Service scores canonical rows and persists the score fields.
type Service struct {
	repo   Repository
	scorer *Scorer
	log    logger.Logger
}

func NewService(repo Repository, scorer *Scorer, log logger.Logger) *Service {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Service{repo: repo, scorer: scorer, log: log}
}

// Rescore loads the bookmark, scores it and writes back confidence_scores and
// intelligence_level only. When sc carries no source type, one is derived from the row.
func (s *Service) Rescore(ctx context.Context, userID, id string, sc Context) (*domain.CanonicalBookmark, error) {
	b, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmark %s: %w", id, err)
	}

	if sc.SourceType == "" {
		sc.SourceType = DefaultSourceType(b)
	}

	a := s.scorer.Score(InputFromCanonical(b), sc)
	level := domain.IntelligenceLevelFor(a.ConfidenceLevel)

	if err := s.repo.UpdateConfidence(ctx, userID, id, a, level); err != nil {
		return nil, fmt.Errorf("failed to store confidence for %s: %w", id, err)
	}

	s.log.Debug("Bookmark rescored",
		logger.String("bookmark_id", id),
		logger.Int("score", a.OverallScore),
		logger.String("level", string(a.ConfidenceLevel)),
	)

	b.ConfidenceScores = a
	b.IntelligenceLevel = level
	return b, nil
}

// DefaultSourceType picks the source tier for a row when the caller did not say.
func DefaultSourceType(b *domain.CanonicalBookmark) SourceType {
	switch b.SourceType {
	case domain.SourceTypeRaindrop:
		if b.SourceMetadata.Enriched() {
			return SourceValidatedScrape
		}
		return SourceDirectAPI
	case domain.SourceTypeManual, domain.SourceTypeShare:
		return SourceUserSupplied
	default:
		return SourceInferred
	}
}

// InputFromCanonical builds scorer input from a canonical row.
func InputFromCanonical(b *domain.CanonicalBookmark) Input {
	in := Input{
		Title:       b.Title,
		Description: domain.Deref(b.Description),
		Tags:        b.Tags,
		SourceType:  b.SourceType,
		SourceID:    b.SourceID,
		ImageURL:    domain.Deref(b.ImageURL),
		SiteName:    domain.Deref(b.SiteName),
	}
	if v, ok := b.SourceMetadata.Extra(ExtraEngagement); ok {
		in.Engagement = v
	}
	if v, ok := b.SourceMetadata.Extra(ExtraPlatformContext); ok {
		in.PlatformContext = v
	}
	return in
}
