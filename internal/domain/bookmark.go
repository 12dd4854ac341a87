package domain

import "time"

// Source types a canonical bookmark can originate from.
const (
	SourceTypeRaindrop = "raindrop"
	SourceTypeManual   = "manual"
	SourceTypeShare    = "share"
)

// DefaultTitle is used when the provider sends no title at all.
const DefaultTitle = "Untitled"

// StagingBookmark is a bookmark exactly as received from the external
// bookmarking provider. It is unique per (UserID, SourceID).
type StagingBookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the internal row id.
	ID int64 `json:"id"`

	// UserID owns the bookmark.
	UserID string `json:"user_id"`

	// SourceID is the provider-assigned id (numeric ids are stored as strings).
	SourceID string `json:"source_id"`

	// ─────────────────────────────
	// Content (nullable as sent by the provider)
	// ─────────────────────────────

	Title *string  `json:"title"`
	Link  *string  `json:"link"`
	Tags  []string `json:"tags"`

	CreatedAt time.Time `json:"created_at"`

	// ─────────────────────────────
	// Lifecycle
	// ─────────────────────────────

	// IsOrganized flips to true once the bookmark has been promoted.
	IsOrganized bool `json:"is_organized"`
}

// CanonicalBookmark is the single source of truth for a user's bookmark,
// whatever its origin. It is unique per (UserID, SourceType, SourceID).
type CanonicalBookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Provenance
	// ─────────────────────────────

	SourceType     string          `json:"source_type"`
	SourceID       string          `json:"source_id"`
	SourceMetadata *SourceMetadata `json:"source_metadata,omitempty"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title       string   `json:"title"`
	URL         string   `json:"url"`
	ResolvedURL *string  `json:"resolved_url,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	ImageAlt    *string  `json:"image_alt,omitempty"`
	SiteName    *string  `json:"site_name,omitempty"`
	Tags        []string `json:"tags"`

	IsOrganized bool `json:"is_organized"`

	// ─────────────────────────────
	// Confidence (written only by the scorer)
	// ─────────────────────────────

	ConfidenceScores  *Assessment `json:"confidence_scores,omitempty"`
	IntelligenceLevel int         `json:"intelligence_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DedupKey identifies a canonical bookmark independently of its generated id.
type DedupKey struct {
	UserID     string
	SourceType string
	SourceID   string
}

// Key returns the dedup key of the bookmark.
func (b *CanonicalBookmark) Key() DedupKey {
	return DedupKey{UserID: b.UserID, SourceType: b.SourceType, SourceID: b.SourceID}
}

// Candidate converts the bookmark into the shape checked by the validator.
func (b *CanonicalBookmark) Candidate() *Candidate {
	organized := b.IsOrganized
	c := &Candidate{
		UserID:         b.UserID,
		Title:          b.Title,
		URL:            b.URL,
		SourceType:     b.SourceType,
		SourceID:       b.SourceID,
		ResolvedURL:    b.ResolvedURL,
		Description:    b.Description,
		ImageURL:       b.ImageURL,
		ImageAlt:       b.ImageAlt,
		SiteName:       b.SiteName,
		Tags:           b.Tags,
		SourceMetadata: b.SourceMetadata,
		IsOrganized:    &organized,
	}
	if !b.CreatedAt.IsZero() {
		created := b.CreatedAt
		c.CreatedAt = &created
	}
	return c
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
