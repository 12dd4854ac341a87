package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

type stubTransferrer struct {
	calls  int
	result *domain.TransferResult
	err    error
}

func (s *stubTransferrer) TransferUnorganizedBookmarks(context.Context, string) (*domain.TransferResult, error) {
	s.calls++
	return s.result, s.err
}

func (f *fixture) gate(tr Transferrer, enabled bool) *Gate {
	return NewGate(GateDeps{
		Canonical:   f.store.Canonical(),
		Staging:     f.store.Staging(),
		Transferrer: tr,
		Logger:      logger.Nop(),
		Metrics:     f.metrics,
		Enabled:     enabled,
	})
}

func TestGate_ScenarioE(t *testing.T) {
	f := newFixture()
	f.stage(t,
		&domain.StagingBookmark{SourceID: "1", Title: strPtr("One"), Link: strPtr("https://example.com/1")},
		&domain.StagingBookmark{SourceID: "2", Title: strPtr("Two"), Link: strPtr("https://example.com/2")},
		&domain.StagingBookmark{SourceID: "3", Title: strPtr("Three"), Link: strPtr("https://example.com/3")},
	)

	resp, err := f.gate(f.orchestrator(), true).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	require.NoError(t, err)

	assert.True(t, resp.Metadata.AutoTransfer)
	assert.Len(t, resp.Bookmarks, 3)
	assert.Equal(t, 3, resp.Metadata.Count)
	require.NotNil(t, resp.Metadata.TransferStats)
	assert.Equal(t, 3, resp.Metadata.TransferStats.Success)
	assert.NotEmpty(t, resp.Metadata.Message)
	assert.Equal(t, 1, f.metrics.auto)
	assert.Zero(t, f.pending(t))
}

func TestGate_ExistingBookmarksSkipTransfer(t *testing.T) {
	f := newFixture()
	_, _, err := f.store.Canonical().Upsert(context.Background(), &domain.CanonicalBookmark{
		UserID:     testUser,
		Title:      "Already here",
		URL:        "https://example.com",
		SourceType: domain.SourceTypeManual,
		SourceID:   "m-1",
	})
	require.NoError(t, err)
	f.stage(t, &domain.StagingBookmark{SourceID: "1", Title: strPtr("Pending"), Link: strPtr("https://example.com/1")})

	tr := &stubTransferrer{}
	resp, err := f.gate(tr, true).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	require.NoError(t, err)

	assert.False(t, resp.Metadata.AutoTransfer)
	assert.Len(t, resp.Bookmarks, 1)
	assert.Nil(t, resp.Metadata.TransferStats)
	assert.Zero(t, tr.calls)
}

func TestGate_NothingAnywhere(t *testing.T) {
	f := newFixture()
	tr := &stubTransferrer{}

	resp, err := f.gate(tr, true).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	require.NoError(t, err)

	assert.False(t, resp.Metadata.AutoTransfer)
	assert.NotNil(t, resp.Bookmarks)
	assert.Empty(t, resp.Bookmarks)
	assert.Equal(t, MessageNoBookmarks, resp.Metadata.Message)
	assert.Zero(t, tr.calls)
}

func TestGate_Disabled(t *testing.T) {
	f := newFixture()
	f.stage(t, &domain.StagingBookmark{SourceID: "1", Title: strPtr("Pending"), Link: strPtr("https://example.com/1")})
	tr := &stubTransferrer{}

	resp, err := f.gate(tr, false).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	require.NoError(t, err)

	assert.False(t, resp.Metadata.AutoTransfer)
	assert.Equal(t, MessageAutoTransferOff, resp.Metadata.Message)
	assert.Zero(t, tr.calls)
	assert.Equal(t, 1, f.pending(t))
}

func TestGate_TransferInProgress(t *testing.T) {
	f := newFixture()
	f.stage(t, &domain.StagingBookmark{SourceID: "1", Title: strPtr("Pending"), Link: strPtr("https://example.com/1")})
	tr := &stubTransferrer{err: domain.ErrTransferInProgress}

	resp, err := f.gate(tr, true).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	require.NoError(t, err)

	assert.False(t, resp.Metadata.AutoTransfer)
	assert.Equal(t, MessageTransferInProgress, resp.Metadata.Message)
	assert.Empty(t, resp.Bookmarks)
	assert.Zero(t, f.metrics.auto)
}

func TestGate_BatchFailurePropagates(t *testing.T) {
	f := newFixture()
	f.stage(t, &domain.StagingBookmark{SourceID: "1", Title: strPtr("Pending"), Link: strPtr("https://example.com/1")})
	batchErr := &domain.BatchError{UserID: testUser, Err: errors.New("connection refused")}
	tr := &stubTransferrer{err: batchErr}

	resp, err := f.gate(tr, true).GetCanonicalBookmarksWithAutoTransfer(context.Background(), testUser)
	assert.Nil(t, resp)
	var got *domain.BatchError
	require.ErrorAs(t, err, &got)
}
