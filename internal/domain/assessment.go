package domain

import "time"

// ConfidenceLevel buckets an overall confidence score.
type ConfidenceLevel string

const (
	ConfidenceExcellent ConfidenceLevel = "EXCELLENT"
	ConfidenceGood      ConfidenceLevel = "GOOD"
	ConfidenceFair      ConfidenceLevel = "FAIR"
	ConfidencePoor      ConfidenceLevel = "POOR"
	ConfidenceVeryPoor  ConfidenceLevel = "VERY_POOR"
)

// Breakdown holds the four sub-scores of an assessment, each in [0, 100].
type Breakdown struct {
	SourceQuality         float64 `json:"sourceQuality"`
	Completeness          float64 `json:"completeness"`
	APICompliance         float64 `json:"apiCompliance"`
	CrossSourceValidation float64 `json:"crossSourceValidation"`
}

// Factor explains how one dimension contributed to the overall score.
type Factor struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Detail   string  `json:"detail"`
}

// Assessment is the confidence score attached to a canonical bookmark.
type Assessment struct {
	OverallScore    int             `json:"overallScore"`
	Breakdown       Breakdown       `json:"breakdown"`
	Factors         []Factor        `json:"factors"`
	Recommendations []string        `json:"recommendations"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	Timestamp       time.Time       `json:"timestamp"`
}

// LevelForScore maps an overall score to its confidence bucket.
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 90:
		return ConfidenceExcellent
	case score >= 80:
		return ConfidenceGood
	case score >= 70:
		return ConfidenceFair
	case score >= 50:
		return ConfidencePoor
	default:
		return ConfidenceVeryPoor
	}
}

// IntelligenceLevelFor derives the numeric intelligence_level column (1..5).
func IntelligenceLevelFor(level ConfidenceLevel) int {
	switch level {
	case ConfidenceExcellent:
		return 5
	case ConfidenceGood:
		return 4
	case ConfidenceFair:
		return 3
	case ConfidencePoor:
		return 2
	case ConfidenceVeryPoor:
		return 1
	default:
		return 0
	}
}
