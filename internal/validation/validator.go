// Package validation checks candidate canonical bookmarks against the structural
// and length constraints of the canonical store.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// Field limits, counted in Unicode code points.
const (
	MaxTitleLength       = 1000
	MaxURLLength         = 2048
	MaxDescriptionLength = 5000
	MaxImageAltLength    = 500
	MaxSiteNameLength    = 200
	MaxSourceTypeLength  = 50
	MaxSourceIDLength    = 255
)

// Validator is stateless; the zero value is ready to use.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks every rule and returns all violations. It never short-circuits.
func (v *Validator) Validate(c *domain.Candidate) domain.ValidationResult {
	if c == nil {
		return domain.ValidationResult{IsValid: false, Errors: []string{"candidate is required"}}
	}

	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	requireString("user_id", c.UserID, add)

	if requireString("title", c.Title, add) {
		maxLength("title", c.Title, MaxTitleLength, add)
	}

	if strings.TrimSpace(c.URL) == "" {
		add("url is required")
	} else {
		checkURL("url", c.URL, add)
	}

	if requireString("source_type", c.SourceType, add) {
		maxLength("source_type", c.SourceType, MaxSourceTypeLength, add)
	}
	if requireString("source_id", c.SourceID, add) {
		maxLength("source_id", c.SourceID, MaxSourceIDLength, add)
	}

	if c.ResolvedURL != nil {
		checkURL("resolved_url", *c.ResolvedURL, add)
	}
	if c.ImageURL != nil {
		checkURL("image_url", *c.ImageURL, add)
	}

	if c.Description != nil {
		maxLength("description", *c.Description, MaxDescriptionLength, add)
	}
	if c.ImageAlt != nil {
		maxLength("image_alt", *c.ImageAlt, MaxImageAltLength, add)
	}
	if c.SiteName != nil {
		maxLength("site_name", *c.SiteName, MaxSiteNameLength, add)
	}

	if c.CreatedAt != nil && c.CreatedAt.IsZero() {
		add("created_at must be a valid date")
	}

	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: nonNil(errs)}
}

// IsValidURLFormat reports whether raw parses as an absolute URL with a scheme and a host.
func IsValidURLFormat(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func requireString(field, value string, add func(string)) bool {
	if strings.TrimSpace(value) == "" {
		add(field + " is required")
		return false
	}
	return true
}

func maxLength(field, value string, limit int, add func(string)) {
	if utf8.RuneCountInString(value) > limit {
		add(fmt.Sprintf("%s must be %d characters or less", field, limit))
	}
}

func checkURL(field, value string, add func(string)) {
	if !IsValidURLFormat(value) {
		add(field + " must be a valid URL format")
	}
	maxLength(field, value, MaxURLLength, add)
}

func nonNil(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	return errs
}
