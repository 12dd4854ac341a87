package validation

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

var requiredStringFields = []string{"user_id", "title", "url", "source_type", "source_id"}

var optionalStringFields = []string{"resolved_url", "description", "image_url", "image_alt", "site_name"}

// dateLayouts are tried in order when parsing created_at.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DecodeCandidate turns an untyped JSON object into a Candidate and validates it.
// Type errors (non-string fields, non-array tags, array source_metadata, ...) are
// reported next to the regular rule violations. JSON null on any field means
// "not provided".
func (v *Validator) DecodeCandidate(data []byte) (*domain.Candidate, domain.ValidationResult) {
	return v.DecodeCandidateWith(data, nil)
}

// DecodeCandidateWith is DecodeCandidate with a hook that can fill server-side
// fields (owner, defaults) between decoding and rule validation.
func (v *Validator) DecodeCandidateWith(data []byte, fill func(c *domain.Candidate)) (*domain.Candidate, domain.ValidationResult) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, domain.ValidationResult{IsValid: false, Errors: []string{"candidate must be a JSON object"}}
	}

	c := &domain.Candidate{}
	var typeErrs []string
	badFields := make(map[string]bool)
	fail := func(field, msg string) {
		badFields[field] = true
		typeErrs = append(typeErrs, msg)
	}

	required := map[string]*string{
		"user_id":     &c.UserID,
		"title":       &c.Title,
		"url":         &c.URL,
		"source_type": &c.SourceType,
		"source_id":   &c.SourceID,
	}
	for _, field := range requiredStringFields {
		s, ok, present := stringField(raw, field)
		if present && !ok {
			fail(field, field+" must be a string")
			continue
		}
		*required[field] = s
	}

	optional := map[string]**string{
		"resolved_url": &c.ResolvedURL,
		"description":  &c.Description,
		"image_url":    &c.ImageURL,
		"image_alt":    &c.ImageAlt,
		"site_name":    &c.SiteName,
	}
	for _, field := range optionalStringFields {
		s, ok, present := stringField(raw, field)
		if !present {
			continue
		}
		if !ok {
			fail(field, field+" must be a string")
			continue
		}
		value := s
		*optional[field] = &value
	}

	if msg := decodeTags(raw["tags"], c); msg != "" {
		fail("tags", msg)
	}
	if msg := decodeSourceMetadata(raw["source_metadata"], c); msg != "" {
		fail("source_metadata", msg)
	}

	if b, present := raw["is_organized"]; present && !isNull(b) {
		var organized bool
		if err := json.Unmarshal(b, &organized); err != nil {
			fail("is_organized", "is_organized must be a boolean")
		} else {
			c.IsOrganized = &organized
		}
	}

	if b, present := raw["created_at"]; present && !isNull(b) {
		t, ok := parseDate(b)
		if !ok {
			fail("created_at", "created_at must be a valid date")
		} else {
			c.CreatedAt = &t
		}
	}

	if fill != nil {
		fill(c)
	}

	result := v.Validate(c)
	// A field with a type error already has its message; drop the derived "is required".
	filtered := make([]string, 0, len(result.Errors))
	for _, msg := range result.Errors {
		field, _, _ := strings.Cut(msg, " ")
		if badFields[field] {
			continue
		}
		filtered = append(filtered, msg)
	}
	result = domain.ValidationResult{IsValid: len(filtered) == 0, Errors: filtered}

	return c, domain.ValidationResult{IsValid: len(typeErrs) == 0, Errors: typeErrs}.Merge(result)
}

// stringField returns the string value of field, whether it was a string, and whether
// it was present with a non-null value.
func stringField(raw map[string]json.RawMessage, field string) (string, bool, bool) {
	b, present := raw[field]
	if !present || isNull(b) {
		return "", true, false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false, true
	}
	return s, true, true
}

func decodeTags(b json.RawMessage, c *domain.Candidate) string {
	if b == nil || isNull(b) {
		return ""
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return "tags must be an array"
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "tags must contain only strings"
		}
		tags = append(tags, s)
	}
	c.Tags = tags
	return ""
}

func decodeSourceMetadata(b json.RawMessage, c *domain.Candidate) string {
	if b == nil || isNull(b) {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return "source_metadata must be an object"
	}

	var meta domain.SourceMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return "source_metadata contains invalid provenance fields"
	}

	// Keys outside the typed provenance flags go to the Extras side channel.
	known := map[string]bool{
		"ai_enhanced": true, "metadata_enriched": true, "metadata_source": true,
		"metadata_error": true, "enriched_at": true, "imported_from": true,
		"staging_id": true, "extras": true,
	}
	for key, value := range obj {
		if known[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		if meta.Extras == nil {
			meta.Extras = make(map[string]any)
		}
		meta.Extras[key] = v
	}

	c.SourceMetadata = &meta
	return ""
}

func parseDate(b json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
