package domain

// ErrorType classifies a per-record transfer failure.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
)

// TransferError is recorded for every staging bookmark that could not be promoted.
type TransferError struct {
	BookmarkID int64     `json:"bookmarkId"`
	Title      string    `json:"title"`
	Error      string    `json:"error"`
	ErrorType  ErrorType `json:"errorType"`
}

// TransferredBookmark links a promoted staging row to its canonical row.
type TransferredBookmark struct {
	StagingID   int64  `json:"stagingId"`
	CanonicalID string `json:"canonicalId"`
	Title       string `json:"title"`
	Enriched    bool   `json:"enriched"`
}

// EnrichmentStats tallies enrichment outcomes across a batch.
type EnrichmentStats struct {
	Enriched int `json:"enriched"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// TransferResult summarizes one orchestrator run.
type TransferResult struct {
	Success              int                   `json:"success"`
	Failed               int                   `json:"failed"`
	Total                int                   `json:"total"`
	Errors               []TransferError       `json:"errors"`
	TransferredBookmarks []TransferredBookmark `json:"transferredBookmarks"`
	EnrichmentStats      EnrichmentStats       `json:"enrichmentStats"`
	Message              string                `json:"message,omitempty"`
}

// NewTransferResult returns an empty result with non-nil slices.
func NewTransferResult() *TransferResult {
	return &TransferResult{
		Errors:               []TransferError{},
		TransferredBookmarks: []TransferredBookmark{},
	}
}

// GateMetadata is returned next to the bookmarks by the auto-transfer gate.
type GateMetadata struct {
	AutoTransfer  bool            `json:"autoTransfer"`
	Message       string          `json:"message,omitempty"`
	Count         int             `json:"count"`
	TransferStats *TransferResult `json:"transferStats,omitempty"`
}

// GateResponse is the canonical read returned by the auto-transfer gate.
type GateResponse struct {
	Bookmarks []*CanonicalBookmark `json:"bookmarks"`
	Metadata  GateMetadata         `json:"_metadata"`
}
