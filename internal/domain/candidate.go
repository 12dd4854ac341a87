package domain

import "time"

// Candidate is a canonical record that has not been accepted into the store yet.
// Optional fields are pointers: nil means "not provided".
type Candidate struct {
	UserID     string
	Title      string
	URL        string
	SourceType string
	SourceID   string

	ResolvedURL *string
	Description *string
	ImageURL    *string
	ImageAlt    *string
	SiteName    *string

	Tags           []string
	SourceMetadata *SourceMetadata
	IsOrganized    *bool
	CreatedAt      *time.Time
}

// ValidationResult is the outcome of validating a Candidate.
// Errors holds every violation found, in rule order.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Merge appends the errors of other and recomputes IsValid.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	errs := make([]string, 0, len(r.Errors)+len(other.Errors))
	errs = append(errs, r.Errors...)
	errs = append(errs, other.Errors...)
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Bookmark builds a canonical bookmark from the candidate. ID and timestamps are left
// to the repository.
func (c *Candidate) Bookmark() *CanonicalBookmark {
	b := &CanonicalBookmark{
		UserID:         c.UserID,
		Title:          c.Title,
		URL:            c.URL,
		SourceType:     c.SourceType,
		SourceID:       c.SourceID,
		ResolvedURL:    c.ResolvedURL,
		Description:    c.Description,
		ImageURL:       c.ImageURL,
		ImageAlt:       c.ImageAlt,
		SiteName:       c.SiteName,
		Tags:           c.Tags,
		SourceMetadata: c.SourceMetadata,
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.ResolvedURL == nil && b.URL != "" {
		b.ResolvedURL = StringPtr(b.URL)
	}
	if c.IsOrganized != nil {
		b.IsOrganized = *c.IsOrganized
	}
	if c.CreatedAt != nil {
		b.CreatedAt = *c.CreatedAt
	}
	return b
}
