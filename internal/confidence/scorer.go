// Package confidence computes how trustworthy a piece of extracted bookmark metadata is.
//
// An assessment is built from four independently scored dimensions (source quality,
// completeness, API compliance and cross-source validation) combined with fixed weights.
// The Scorer performs no I/O; callers describe where the data came from through Context.
package confidence

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

const (
	// Dimension weights
	WeightSourceQuality = 0.40
	WeightCompleteness  = 0.25
	WeightAPICompliance = 0.20
	WeightValidation    = 0.15

	// Completeness points for required fields (max 65)
	PointsTitle       = 20.0
	PointsDescription = 15.0
	PointsTags        = 10.0
	PointsSourceType  = 10.0
	PointsSourceID    = 10.0

	// Completeness bonus points
	PointsImageURL        = 5.0
	PointsSiteName        = 5.0
	PointsEngagement      = 10.0
	PointsPlatformContext = 10.0

	MaxScore = 100.0
)

// Factor categories, in dimension order.
const (
	CategorySourceQuality = "source_quality"
	CategoryCompleteness  = "completeness"
	CategoryAPICompliance = "api_compliance"
	CategoryValidation    = "cross_source_validation"
)

// Recommendation thresholds and messages, in dimension order.
const (
	thresholdSourceQuality = 70.0
	thresholdCompleteness  = 60.0
	thresholdAPICompliance = 80.0
	thresholdValidation    = 50.0
	thresholdOverall       = 50

	RecommendDirectAPI     = "Use direct API access for higher source quality"
	RecommendEnhanceMeta   = "Enhance metadata extraction to improve completeness"
	RecommendRateLimiting  = "Review rate limiting and API usage patterns"
	RecommendCrossPlatform = "Implement cross-platform validation"
	RecommendManualReview  = "Consider manual review of this content"
)

// SourceType says how the metadata was obtained.
type SourceType string

const (
	SourceDirectAPI       SourceType = "direct_api"
	SourceValidatedScrape SourceType = "validated_scrape"
	SourceRawScrape       SourceType = "raw_scrape"
	SourceInferred        SourceType = "inferred"
	SourceUserSupplied    SourceType = "user_supplied"
)

var sourceScores = map[SourceType]float64{
	SourceDirectAPI:       100,
	SourceValidatedScrape: 85,
	SourceRawScrape:       70,
	SourceInferred:        50,
	SourceUserSupplied:    30,
}

// APIStatus is the rate-limit state of the upstream API at extraction time.
type APIStatus string

const (
	APIRateLimitOK       APIStatus = "rate_limit_ok"
	APIRateLimitWarning  APIStatus = "rate_limit_warning"
	APIRateLimitExceeded APIStatus = "rate_limit_exceeded"
	APIError             APIStatus = "api_error"
	APINoAccess          APIStatus = "no_api_access"
)

var apiScores = map[APIStatus]float64{
	APIRateLimitOK:       100,
	APIRateLimitWarning:  80,
	APIRateLimitExceeded: 40,
	APIError:             20,
	APINoAccess:          0,
}

// ValidationResults is supplied by whatever cross-checked the metadata against another
// platform. Nothing in this module produces it; it is a pluggable scoring input.
type ValidationResults struct {
	CrossPlatformMatch bool `json:"crossPlatformMatch"`
	PartialMatch       bool `json:"partialMatch"`
	ValidationError    bool `json:"validationError"`
}

// Context carries the caller's hints about the metadata. The zero value is valid.
type Context struct {
	SourceType        SourceType         `json:"sourceType,omitempty"`
	APIStatus         APIStatus          `json:"apiStatus,omitempty"`
	ValidationResults *ValidationResults `json:"validationResults,omitempty"`
}

// Input is the metadata being assessed.
type Input struct {
	Title       string
	Description string
	Tags        []string
	SourceType  string
	SourceID    string
	ImageURL    string
	SiteName    string

	// Engagement and PlatformContext hold arbitrary decoded JSON.
	Engagement      any
	PlatformContext any
}

// Scorer computes assessments. The zero value uses time.Now for timestamps.
type Scorer struct {
	Now func() time.Time
}

// NewScorer returns a Scorer using the wall clock.
func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

// Score returns the weighted assessment for in under ctx.
func (s *Scorer) Score(in Input, ctx Context) *domain.Assessment {
	source, sourceDetail := scoreSourceQuality(ctx.SourceType)
	completeness, completenessDetail := scoreCompleteness(in)
	compliance, complianceDetail := scoreAPICompliance(ctx.APIStatus)
	validation, validationDetail := scoreValidation(ctx.ValidationResults)

	weighted := source*WeightSourceQuality +
		completeness*WeightCompleteness +
		compliance*WeightAPICompliance +
		validation*WeightValidation
	overall := int(math.Round(math.Max(0, math.Min(MaxScore, weighted))))

	a := &domain.Assessment{
		OverallScore: overall,
		Breakdown: domain.Breakdown{
			SourceQuality:         source,
			Completeness:          completeness,
			APICompliance:         compliance,
			CrossSourceValidation: validation,
		},
		Factors: []domain.Factor{
			{Category: CategorySourceQuality, Score: source, Weight: WeightSourceQuality, Detail: sourceDetail},
			{Category: CategoryCompleteness, Score: completeness, Weight: WeightCompleteness, Detail: completenessDetail},
			{Category: CategoryAPICompliance, Score: compliance, Weight: WeightAPICompliance, Detail: complianceDetail},
			{Category: CategoryValidation, Score: validation, Weight: WeightValidation, Detail: validationDetail},
		},
		ConfidenceLevel: domain.LevelForScore(overall),
		Timestamp:       s.now(),
	}
	a.Recommendations = recommendations(a.Breakdown, overall)

	return a
}

func (s *Scorer) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func scoreSourceQuality(t SourceType) (float64, string) {
	if t == "" {
		return sourceScores[SourceInferred], "No source type provided, treated as inferred"
	}
	if score, ok := sourceScores[t]; ok {
		return score, fmt.Sprintf("Source type %s", t)
	}
	return sourceScores[SourceInferred], fmt.Sprintf("Unknown source type %q, treated as inferred", string(t))
}

func scoreCompleteness(in Input) (float64, string) {
	var total float64
	var presentFields, missing []string

	check := func(name string, ok bool, points float64) {
		if ok {
			total += points
			presentFields = append(presentFields, name)
			return
		}
		missing = append(missing, name)
	}

	check("title", notBlank(in.Title), PointsTitle)
	check("description", notBlank(in.Description), PointsDescription)
	check("tags", notBlank(strings.Join(in.Tags, ",")), PointsTags)
	check("source_type", notBlank(in.SourceType), PointsSourceType)
	check("source_id", notBlank(in.SourceID), PointsSourceID)

	// Bonus fields are only reported when present.
	if notBlank(in.ImageURL) {
		total += PointsImageURL
		presentFields = append(presentFields, "image_url")
	}
	if notBlank(in.SiteName) {
		total += PointsSiteName
		presentFields = append(presentFields, "site_name")
	}
	if present(in.Engagement) {
		total += PointsEngagement
		presentFields = append(presentFields, "engagement")
	}
	if present(in.PlatformContext) {
		total += PointsPlatformContext
		presentFields = append(presentFields, "platform_context")
	}

	total = math.Min(total, MaxScore)

	detail := "Present: " + listOrNone(presentFields)
	if len(missing) > 0 {
		detail += "; missing: " + strings.Join(missing, ", ")
	}
	return total, detail
}

func scoreAPICompliance(status APIStatus) (float64, string) {
	if status == "" {
		return apiScores[APIRateLimitOK], "No API status provided, assuming rate limit ok"
	}
	if score, ok := apiScores[status]; ok {
		return score, fmt.Sprintf("API status %s", status)
	}
	return apiScores[APIRateLimitOK], fmt.Sprintf("Unknown API status %q, assuming rate limit ok", string(status))
}

func scoreValidation(v *ValidationResults) (float64, string) {
	switch {
	case v == nil:
		return 30, "No cross-source validation performed"
	case v.CrossPlatformMatch:
		return 100, "Cross-platform match"
	case v.PartialMatch:
		return 70, "Partial cross-platform match"
	case v.ValidationError:
		return 20, "Cross-source validation failed"
	default:
		return 30, "No cross-platform match"
	}
}

func recommendations(b domain.Breakdown, overall int) []string {
	recs := []string{}
	if b.SourceQuality < thresholdSourceQuality {
		recs = append(recs, RecommendDirectAPI)
	}
	if b.Completeness < thresholdCompleteness {
		recs = append(recs, RecommendEnhanceMeta)
	}
	if b.APICompliance < thresholdAPICompliance {
		recs = append(recs, RecommendRateLimiting)
	}
	if b.CrossSourceValidation < thresholdValidation {
		recs = append(recs, RecommendCrossPlatform)
	}
	if overall < thresholdOverall {
		recs = append(recs, RecommendManualReview)
	}
	return recs
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// present reports whether v is non-null and its text form is non-blank.
// Objects always have a text form; lists read as their joined elements.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return notBlank(t)
	case []string:
		return notBlank(strings.Join(t, ","))
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if e != nil {
				parts = append(parts, fmt.Sprint(e))
			}
		}
		return notBlank(strings.Join(parts, ","))
	default:
		return true
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
