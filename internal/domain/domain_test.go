package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "trims and drops blanks",
			in:   []string{" go ", "", "   ", "web"},
			want: []string{"go", "web"},
		},
		{
			name: "removes duplicates keeping first",
			in:   []string{"b", "a", "b", " a"},
			want: []string{"b", "a"},
		},
		{
			name: "nfc composes accents",
			in:   []string{"cafe\u0301", "caf\u00e9"},
			want: []string{"caf\u00e9"},
		},
		{
			name: "nil input",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  ConfidenceLevel
		level int
	}{
		{100, ConfidenceExcellent, 5},
		{90, ConfidenceExcellent, 5},
		{89, ConfidenceGood, 4},
		{80, ConfidenceGood, 4},
		{79, ConfidenceFair, 3},
		{70, ConfidenceFair, 3},
		{69, ConfidencePoor, 2},
		{50, ConfidencePoor, 2},
		{49, ConfidenceVeryPoor, 1},
		{0, ConfidenceVeryPoor, 1},
	}

	for _, tt := range tests {
		got := LevelForScore(tt.score)
		if got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
		if lvl := IntelligenceLevelFor(got); lvl != tt.level {
			t.Errorf("IntelligenceLevelFor(%s) = %d, want %d", got, lvl, tt.level)
		}
	}
}

func TestCandidateBookmarkDefaults(t *testing.T) {
	c := &Candidate{
		UserID:     "u1",
		Title:      "Test",
		URL:        "https://example.com",
		SourceType: SourceTypeRaindrop,
		SourceID:   "12345",
	}

	b := c.Bookmark()
	if b.ResolvedURL == nil || *b.ResolvedURL != "https://example.com" {
		t.Errorf("ResolvedURL should default to URL, got %v", b.ResolvedURL)
	}
	if b.Tags == nil {
		t.Error("Tags should never be nil")
	}
	if b.IsOrganized {
		t.Error("IsOrganized should default to false")
	}

	round := b.Candidate()
	if round.IsOrganized == nil || *round.IsOrganized {
		t.Error("Candidate() should carry IsOrganized=false explicitly")
	}
	if round.CreatedAt != nil {
		t.Error("zero CreatedAt should not be carried")
	}
}

func TestValidationResultMerge(t *testing.T) {
	a := ValidationResult{IsValid: true}
	b := ValidationResult{IsValid: false, Errors: []string{"title is required"}}

	merged := a.Merge(b)
	if merged.IsValid {
		t.Error("merged result should be invalid")
	}
	if len(merged.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(merged.Errors))
	}

	if !a.Merge(ValidationResult{IsValid: true}).IsValid {
		t.Error("merging two valid results should stay valid")
	}
}

func TestMergeUpsertKeepsEnrichment(t *testing.T) {
	desc := "enriched description"
	existing := &CanonicalBookmark{
		ID:                "id-1",
		Title:             "Old",
		URL:               "https://old.example.com",
		Description:       &desc,
		SourceMetadata:    &SourceMetadata{MetadataEnriched: Bool(true)},
		IntelligenceLevel: 4,
	}

	existing.MergeUpsert(&CanonicalBookmark{
		Title:       "New",
		URL:         "https://new.example.com",
		IsOrganized: true,
	})

	if existing.Title != "New" || existing.URL != "https://new.example.com" {
		t.Errorf("provider fields should be refreshed, got %q %q", existing.Title, existing.URL)
	}
	if existing.Description == nil || *existing.Description != desc {
		t.Error("description should be kept when the incoming version has none")
	}
	if !existing.SourceMetadata.Enriched() {
		t.Error("source metadata should be kept when the incoming version has none")
	}
	if existing.ID != "id-1" || existing.IntelligenceLevel != 4 {
		t.Error("identity and confidence must not change")
	}
	if existing.Tags == nil || !existing.IsOrganized {
		t.Error("tags should be non-nil and organized flag refreshed")
	}
}

func TestApplyInsightsMergesExtras(t *testing.T) {
	title := "AI title"
	b := &CanonicalBookmark{
		Title:          "Original",
		Tags:           []string{"a"},
		SourceMetadata: &SourceMetadata{MetadataSource: MetadataSourceHTML, Extras: map[string]any{"keep": 1}},
	}

	b.ApplyInsights(&Insights{
		Title:          &title,
		SourceMetadata: &SourceMetadata{AIEnhanced: Bool(true), Extras: map[string]any{"caption": "x"}},
	})

	if b.Title != "AI title" {
		t.Errorf("Title = %q", b.Title)
	}
	if !reflect.DeepEqual(b.Tags, []string{"a"}) {
		t.Errorf("Tags should be untouched, got %v", b.Tags)
	}
	m := b.SourceMetadata
	if m.AIEnhanced == nil || !*m.AIEnhanced || m.MetadataSource != MetadataSourceHTML {
		t.Errorf("metadata flags not merged: %+v", m)
	}
	if _, ok := m.Extra("keep"); !ok {
		t.Error("existing extras should survive")
	}
	if _, ok := m.Extra("caption"); !ok {
		t.Error("incoming extras should be added")
	}
	if (&Insights{}).Empty() != true {
		t.Error("zero insights should be empty")
	}
}
