// Package bookmarks handles canonical bookmarks that do not come from the
// staging pipeline: manual or shared adds, and after-the-fact AI insight updates.
package bookmarks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// Repository is the part of the canonical store the Service needs.
type Repository interface {
	GetByID(ctx context.Context, userID, id string) (*domain.CanonicalBookmark, error)
	Upsert(ctx context.Context, b *domain.CanonicalBookmark) (*domain.CanonicalBookmark, bool, error)
	UpdateInsights(ctx context.Context, userID, id string, b *domain.CanonicalBookmark) error
}

// Validator decodes and checks candidate records.
type Validator interface {
	Validate(c *domain.Candidate) domain.ValidationResult
	DecodeCandidateWith(data []byte, fill func(c *domain.Candidate)) (*domain.Candidate, domain.ValidationResult)
}

// Service writes canonical bookmarks on behalf of a user.
type Service struct {
	repo      Repository
	validator Validator
	log       logger.Logger
	newID     func() string
}

// NewService creates a new bookmarks service
func NewService(repo Repository, validator Validator, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log,
		newID:     uuid.NewString,
	}
}

// Add decodes a candidate from body and upserts it for userID. The owner always
// comes from userID; source_type defaults to manual and source_id to a fresh id.
// Invalid input returns a *domain.ValidationError carrying every violation.
func (s *Service) Add(ctx context.Context, userID string, body []byte) (*domain.CanonicalBookmark, bool, error) {
	c, res := s.validator.DecodeCandidateWith(body, func(c *domain.Candidate) {
		c.UserID = userID
		if strings.TrimSpace(c.SourceType) == "" {
			c.SourceType = domain.SourceTypeManual
		}
		if strings.TrimSpace(c.SourceID) == "" {
			c.SourceID = s.newID()
		}
		if c.Tags != nil {
			c.Tags = domain.NormalizeTags(c.Tags)
		}
	})
	if !res.IsValid {
		return nil, false, &domain.ValidationError{Errors: res.Errors}
	}

	b := c.Bookmark()
	if c.IsOrganized == nil {
		b.IsOrganized = true
	}

	saved, created, err := s.repo.Upsert(ctx, b)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save bookmark: %w", err)
	}

	s.log.Info("bookmark saved",
		logger.String("user_id", userID),
		logger.String("bookmark_id", saved.ID),
		logger.String("source_type", saved.SourceType),
		logger.Bool("created", created))

	return saved, created, nil
}

// ApplyInsights merges an insight update into a stored bookmark. The merged row
// must still pass validation before anything is written.
func (s *Service) ApplyInsights(ctx context.Context, userID, id string, in *domain.Insights) (*domain.CanonicalBookmark, error) {
	if in.Empty() {
		return nil, &domain.ValidationError{Errors: []string{"at least one of title, description, tags, source_metadata is required"}}
	}

	b, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmark %s: %w", id, err)
	}

	if in.Tags != nil {
		in.Tags = domain.NormalizeTags(in.Tags)
	}
	b.ApplyInsights(in)

	if res := s.validator.Validate(b.Candidate()); !res.IsValid {
		return nil, &domain.ValidationError{Errors: res.Errors}
	}

	if err := s.repo.UpdateInsights(ctx, userID, id, b); err != nil {
		return nil, fmt.Errorf("failed to update bookmark %s: %w", id, err)
	}

	s.log.Debug("bookmark insights applied",
		logger.String("user_id", userID),
		logger.String("bookmark_id", id))

	return s.repo.GetByID(ctx, userID, id)
}
