// Package transfer promotes staging bookmarks into the canonical store and
// exposes the auto-transfer gate used by canonical reads.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/enrich"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

const tracerName = "github.com/MrSnakeDoc/canon/internal/transfer"

// MessageNothingToTransfer is set on the result of a run that found no work.
const MessageNothingToTransfer = "No unorganized bookmarks to transfer"

// CodeInvalidMetadata marks enrichment output that was dropped because the
// enriched record no longer validated.
const CodeInvalidMetadata = "invalid_metadata"

// Run outcomes reported to Metrics.ObserveRun.
const (
	RunOK     = "ok"
	RunEmpty  = "empty"
	RunLocked = "locked"
	RunFailed = "failed"
)

// Record results reported to Metrics.ObserveRecord.
const (
	RecordPromoted         = "promoted"
	RecordValidationFailed = "validation_failed"
	RecordDatabaseFailed   = "database_failed"
)

// Enrichment results reported to Metrics.ObserveEnrichment.
const (
	EnrichmentEnriched = "enriched"
	EnrichmentFailed   = "failed"
	EnrichmentSkipped  = "skipped"
)

// StagingRepository is the part of the staging store the orchestrator needs.
type StagingRepository interface {
	ListUnorganized(ctx context.Context, userID string) ([]*domain.StagingBookmark, error)
	CountUnorganized(ctx context.Context, userID string) (int, error)
	MarkOrganized(ctx context.Context, userID string, id int64) error
}

// CanonicalRepository is the part of the canonical store the orchestrator needs.
type CanonicalRepository interface {
	FindByDedupKey(ctx context.Context, key domain.DedupKey) (*domain.CanonicalBookmark, error)
	Upsert(ctx context.Context, b *domain.CanonicalBookmark) (*domain.CanonicalBookmark, bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.CanonicalBookmark, error)
}

// Validator checks a candidate canonical record.
type Validator interface {
	Validate(c *domain.Candidate) domain.ValidationResult
}

// Locker serializes runs of the same user. Acquire returns
// domain.ErrTransferInProgress when the user already has a run going.
type Locker interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// LockerFunc adapts a function to Locker.
type LockerFunc func(ctx context.Context, userID string) (func(), error)

// Acquire calls f.
func (f LockerFunc) Acquire(ctx context.Context, userID string) (func(), error) {
	return f(ctx, userID)
}

// Recorder keeps the result of finished runs.
type Recorder interface {
	Record(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error {
	return f(ctx, userID, finishedAt, result)
}

// Recorders fans a run out to several recorders. Every recorder is called; the
// errors are joined.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error {
	var errs []error
	for _, r := range rs {
		if err := r.Record(ctx, userID, finishedAt, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Metrics receives run, record and enrichment outcomes.
type Metrics interface {
	ObserveRun(outcome string, d time.Duration)
	ObserveRecord(result string)
	ObserveEnrichment(result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRun(string, time.Duration) {}
func (nopMetrics) ObserveRecord(string)             {}
func (nopMetrics) ObserveEnrichment(string)         {}

// Deps are the collaborators of an Orchestrator. Staging, Canonical, Validator
// and Enricher are required; the rest fall back to no-ops.
type Deps struct {
	Staging   StagingRepository
	Canonical CanonicalRepository
	Validator Validator
	Enricher  enrich.Enricher
	Logger    logger.Logger
	Metrics   Metrics
	Locker    Locker
	Recorder  Recorder
	Now       func() time.Time
}

// Orchestrator moves a user's unorganized staging bookmarks into the canonical store.
type Orchestrator struct {
	staging   StagingRepository
	canonical CanonicalRepository
	validator Validator
	enricher  enrich.Enricher
	logger    logger.Logger
	metrics   Metrics
	locker    Locker
	recorder  Recorder
	now       func() time.Time
	tracer    trace.Tracer
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		staging:   d.Staging,
		canonical: d.Canonical,
		validator: d.Validator,
		enricher:  d.Enricher,
		logger:    d.Logger,
		metrics:   d.Metrics,
		locker:    d.Locker,
		recorder:  d.Recorder,
		now:       d.Now,
		tracer:    otel.Tracer(tracerName),
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// TransferUnorganizedBookmarks promotes every unorganized staging bookmark of the
// user, oldest first, one at a time. Per-record failures are collected in the
// result; only a failure to load the staging set is returned as a *domain.BatchError.
func (o *Orchestrator) TransferUnorganizedBookmarks(ctx context.Context, userID string) (*domain.TransferResult, error) {
	start := o.now()
	ctx, span := o.tracer.Start(ctx, "transfer.run", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, userID)
		if err != nil {
			o.metrics.ObserveRun(RunLocked, o.now().Sub(start))
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, domain.ErrTransferInProgress) {
				o.logger.Info("transfer already running", logger.String("user_id", userID))
				return nil, err
			}
			return nil, fmt.Errorf("failed to acquire transfer lock: %w", err)
		}
		defer release()
	}

	pending, err := o.staging.ListUnorganized(ctx, userID)
	if err != nil {
		batchErr := &domain.BatchError{UserID: userID, Err: err}
		o.logger.Error("failed to load unorganized bookmarks",
			logger.String("user_id", userID),
			logger.Error(err))
		o.metrics.ObserveRun(RunFailed, o.now().Sub(start))
		span.RecordError(batchErr)
		span.SetStatus(codes.Error, "staging load failed")
		return nil, batchErr
	}

	result := domain.NewTransferResult()
	if len(pending) == 0 {
		result.Message = MessageNothingToTransfer
		o.metrics.ObserveRun(RunEmpty, o.now().Sub(start))
		return result, nil
	}

	o.logger.Info("starting bookmark transfer",
		logger.String("user_id", userID),
		logger.Int("candidates", len(pending)))

	for _, sb := range pending {
		result.Total++
		o.promote(ctx, userID, sb, result)
	}

	elapsed := o.now().Sub(start)
	o.metrics.ObserveRun(RunOK, elapsed)
	span.SetAttributes(
		attribute.Int("transfer.total", result.Total),
		attribute.Int("transfer.success", result.Success),
		attribute.Int("transfer.failed", result.Failed),
	)

	o.logger.Info("bookmark transfer finished",
		logger.String("user_id", userID),
		logger.Int("success", result.Success),
		logger.Int("failed", result.Failed),
		logger.Int("total", result.Total),
		logger.Int("enriched", result.EnrichmentStats.Enriched),
		logger.Int("enrichment_failed", result.EnrichmentStats.Failed),
		logger.Int("enrichment_skipped", result.EnrichmentStats.Skipped),
		logger.Duration("elapsed", elapsed))

	o.record(ctx, userID, result)
	return result, nil
}

// promote runs validate, enrich and persist for one staging bookmark and folds the
// outcome into result.
func (o *Orchestrator) promote(ctx context.Context, userID string, sb *domain.StagingBookmark, result *domain.TransferResult) {
	ctx, span := o.tracer.Start(ctx, "transfer.promote", trace.WithAttributes(
		attribute.Int64("staging.id", sb.ID),
		attribute.String("staging.source_id", sb.SourceID),
	))
	defer span.End()

	cand := candidateFromStaging(userID, sb)

	if vr := o.validator.Validate(cand); !vr.IsValid {
		msg := strings.Join(vr.Errors, "; ")
		o.logger.Warn("staging bookmark failed validation",
			logger.Int64("staging_id", sb.ID),
			logger.Strings("errors", vr.Errors))
		o.fail(result, sb, cand.Title, msg, domain.ErrorTypeValidation)
		span.SetStatus(codes.Error, "validation failed")
		return
	}

	existing, err := o.canonical.FindByDedupKey(ctx, domain.DedupKey{
		UserID:     userID,
		SourceType: cand.SourceType,
		SourceID:   cand.SourceID,
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		o.dbFail(span, result, sb, cand.Title, err)
		return
	}

	var (
		bookmark *domain.CanonicalBookmark
		enriched bool
	)
	if existing != nil {
		bookmark = cand.Bookmark()
		// Leave resolved_url to the stored row along with the other enrichment fields.
		bookmark.ResolvedURL = nil
		// The placeholder never replaces a title the row already has.
		if cand.Title == domain.DefaultTitle && strings.TrimSpace(existing.Title) != "" {
			bookmark.Title = existing.Title
		}
		result.EnrichmentStats.Skipped++
		o.metrics.ObserveEnrichment(EnrichmentSkipped)
	} else {
		bookmark, enriched = o.enrich(ctx, cand, sb, result)
	}

	saved, _, err := o.canonical.Upsert(ctx, bookmark)
	if err != nil {
		o.dbFail(span, result, sb, cand.Title, err)
		return
	}

	if err := o.staging.MarkOrganized(ctx, userID, sb.ID); err != nil {
		o.dbFail(span, result, sb, cand.Title, err)
		return
	}

	result.Success++
	result.TransferredBookmarks = append(result.TransferredBookmarks, domain.TransferredBookmark{
		StagingID:   sb.ID,
		CanonicalID: saved.ID,
		Title:       saved.Title,
		Enriched:    enriched,
	})
	o.metrics.ObserveRecord(RecordPromoted)
	span.SetAttributes(attribute.String("canonical.id", saved.ID), attribute.Bool("enriched", enriched))
}

// enrich builds the bookmark to insert. Enrichment never fails the record: on any
// problem the provider fields are kept and the reason lands in source_metadata.
func (o *Orchestrator) enrich(ctx context.Context, cand *domain.Candidate, sb *domain.StagingBookmark, result *domain.TransferResult) (*domain.CanonicalBookmark, bool) {
	meta := &domain.SourceMetadata{
		MetadataEnriched: domain.Bool(false),
		MetadataSource:   domain.MetadataSourceProvider,
		ImportedFrom:     domain.ImportedFromStaging,
		StagingID:        sb.ID,
	}
	base := cand.Bookmark()
	base.SourceMetadata = meta

	if !enrich.IsValidURL(cand.URL) {
		meta.MetadataError = &domain.EnrichmentError{
			Code:    enrich.CodeInvalidURL,
			Message: "url is not eligible for enrichment",
		}
		o.logger.Debug("enrichment skipped",
			logger.Int64("staging_id", sb.ID),
			logger.String("url", cand.URL))
		result.EnrichmentStats.Skipped++
		o.metrics.ObserveEnrichment(EnrichmentSkipped)
		return base, false
	}

	res := o.enricher.FetchMetadata(ctx, cand.URL)
	if res == nil {
		res = &enrich.Result{Error: &domain.EnrichmentError{Code: enrich.CodeFetchFailed, Message: "enricher returned no result"}}
	}
	if res.Error != nil {
		meta.MetadataError = res.Error
		o.logger.Debug("enrichment failed",
			logger.Int64("staging_id", sb.ID),
			logger.String("url", cand.URL),
			logger.String("reason", meta.MetadataError.Error()))
		result.EnrichmentStats.Failed++
		o.metrics.ObserveEnrichment(EnrichmentFailed)
		return base, false
	}

	enriched := *cand
	if res.Title != nil && cand.Title == domain.DefaultTitle {
		enriched.Title = *res.Title
	}
	enriched.Description = res.Description
	enriched.ImageURL = res.Image
	enriched.ImageAlt = res.ImageAlt
	enriched.SiteName = res.SiteName
	if res.ResolvedURL != "" {
		enriched.ResolvedURL = domain.StringPtr(res.ResolvedURL)
	}

	if vr := o.validator.Validate(&enriched); !vr.IsValid {
		meta.MetadataError = &domain.EnrichmentError{
			Code:    CodeInvalidMetadata,
			Message: strings.Join(vr.Errors, "; "),
		}
		o.logger.Debug("enriched metadata rejected",
			logger.Int64("staging_id", sb.ID),
			logger.Strings("errors", vr.Errors))
		result.EnrichmentStats.Failed++
		o.metrics.ObserveEnrichment(EnrichmentFailed)
		return base, false
	}

	now := o.now().UTC()
	enrichedMeta := *meta
	enrichedMeta.MetadataEnriched = domain.Bool(true)
	enrichedMeta.MetadataSource = domain.MetadataSourceHTML
	enrichedMeta.EnrichedAt = &now

	b := enriched.Bookmark()
	b.SourceMetadata = &enrichedMeta
	result.EnrichmentStats.Enriched++
	o.metrics.ObserveEnrichment(EnrichmentEnriched)
	return b, true
}

func (o *Orchestrator) dbFail(span trace.Span, result *domain.TransferResult, sb *domain.StagingBookmark, title string, err error) {
	o.logger.Error("failed to promote staging bookmark",
		logger.Int64("staging_id", sb.ID),
		logger.Error(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, "persistence failed")
	o.fail(result, sb, title, err.Error(), domain.ErrorTypeDatabase)
}

func (o *Orchestrator) fail(result *domain.TransferResult, sb *domain.StagingBookmark, title, msg string, typ domain.ErrorType) {
	result.Failed++
	result.Errors = append(result.Errors, domain.TransferError{
		BookmarkID: sb.ID,
		Title:      title,
		Error:      msg,
		ErrorType:  typ,
	})
	if typ == domain.ErrorTypeValidation {
		o.metrics.ObserveRecord(RecordValidationFailed)
	} else {
		o.metrics.ObserveRecord(RecordDatabaseFailed)
	}
}

// record hands the result to the recorder. It never changes the outcome of the run.
func (o *Orchestrator) record(ctx context.Context, userID string, result *domain.TransferResult) {
	if o.recorder == nil || result.Total == 0 {
		return
	}
	if err := o.recorder.Record(ctx, userID, o.now().UTC(), result); err != nil {
		o.logger.Warn("failed to record transfer run",
			logger.String("user_id", userID),
			logger.Error(err))
	}
}

// candidateFromStaging maps a provider row onto the canonical shape.
func candidateFromStaging(userID string, sb *domain.StagingBookmark) *domain.Candidate {
	title := strings.TrimSpace(domain.Deref(sb.Title))
	if title == "" {
		title = domain.DefaultTitle
	}

	c := &domain.Candidate{
		UserID:      userID,
		Title:       title,
		URL:         strings.TrimSpace(domain.Deref(sb.Link)),
		SourceType:  domain.SourceTypeRaindrop,
		SourceID:    sb.SourceID,
		Tags:        domain.NormalizeTags(sb.Tags),
		IsOrganized: domain.Bool(true),
	}
	if !sb.CreatedAt.IsZero() {
		created := sb.CreatedAt
		c.CreatedAt = &created
	}
	return c
}
