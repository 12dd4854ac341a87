package domain

import "time"

// Metadata sources recorded in SourceMetadata.MetadataSource.
const (
	MetadataSourceHTML     = "html_scrape"
	MetadataSourceProvider = "raindrop"
)

// ImportedFromStaging marks rows promoted by the transfer orchestrator.
const ImportedFromStaging = "raindrop_staging"

// EnrichmentError describes why page metadata could not be attached.
type EnrichmentError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *EnrichmentError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

// SourceMetadata is the provenance payload stored alongside a canonical bookmark.
// Known flags are typed; anything platform specific goes to Extras.
type SourceMetadata struct {
	AIEnhanced       *bool            `json:"ai_enhanced,omitempty"`
	MetadataEnriched *bool            `json:"metadata_enriched,omitempty"`
	MetadataSource   string           `json:"metadata_source,omitempty"`
	MetadataError    *EnrichmentError `json:"metadata_error,omitempty"`
	EnrichedAt       *time.Time       `json:"enriched_at,omitempty"`
	ImportedFrom     string           `json:"imported_from,omitempty"`
	StagingID        int64            `json:"staging_id,omitempty"`

	Extras map[string]any `json:"extras,omitempty"`
}

// Enriched reports whether metadata enrichment succeeded for the row.
func (m *SourceMetadata) Enriched() bool {
	return m != nil && m.MetadataEnriched != nil && *m.MetadataEnriched
}

// Extra returns a value from the free-form side channel.
func (m *SourceMetadata) Extra(key string) (any, bool) {
	if m == nil || m.Extras == nil {
		return nil, false
	}
	v, ok := m.Extras[key]
	return v, ok
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
