package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// Messages returned in the gate metadata.
const (
	MessageNoBookmarks        = "No bookmarks found"
	MessageAutoTransferOff    = "Auto-transfer is disabled"
	MessageTransferInProgress = "A transfer is already in progress for this user; showing current bookmarks"
)

// Transferrer runs a transfer for one user.
type Transferrer interface {
	TransferUnorganizedBookmarks(ctx context.Context, userID string) (*domain.TransferResult, error)
}

// GateMetrics counts reads that triggered a transfer.
type GateMetrics interface {
	ObserveAutoTransfer()
}

// GateDeps are the collaborators of a Gate.
type GateDeps struct {
	Canonical   CanonicalRepository
	Staging     StagingRepository
	Transferrer Transferrer
	Logger      logger.Logger
	Metrics     GateMetrics
	// Enabled turns the read-triggered transfer on.
	Enabled bool
}

// Gate serves canonical reads and promotes pending staging rows the first time a
// user with an empty canonical store is read.
type Gate struct {
	canonical   CanonicalRepository
	staging     StagingRepository
	transferrer Transferrer
	logger      logger.Logger
	metrics     GateMetrics
	enabled     bool
}

// NewGate creates a new auto-transfer gate
func NewGate(d GateDeps) *Gate {
	g := &Gate{
		canonical:   d.Canonical,
		staging:     d.Staging,
		transferrer: d.Transferrer,
		logger:      d.Logger,
		metrics:     d.Metrics,
		enabled:     d.Enabled,
	}
	if g.logger == nil {
		g.logger = logger.Nop()
	}
	return g
}

// GetCanonicalBookmarksWithAutoTransfer returns the user's canonical bookmarks.
// When there are none but unorganized staging rows exist, it runs a transfer
// synchronously and returns the fresh read.
func (g *Gate) GetCanonicalBookmarksWithAutoTransfer(ctx context.Context, userID string) (*domain.GateResponse, error) {
	bookmarks, err := g.canonical.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical bookmarks: %w", err)
	}
	if len(bookmarks) > 0 {
		return response(bookmarks, false, "", nil), nil
	}

	if !g.enabled {
		return response(bookmarks, false, MessageAutoTransferOff, nil), nil
	}

	pending, err := g.staging.CountUnorganized(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unorganized bookmarks: %w", err)
	}
	if pending == 0 {
		return response(bookmarks, false, MessageNoBookmarks, nil), nil
	}

	g.logger.Info("canonical store empty, auto-transferring staging bookmarks",
		logger.String("user_id", userID),
		logger.Int("pending", pending))

	stats, err := g.transferrer.TransferUnorganizedBookmarks(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrTransferInProgress) {
			return nil, err
		}
		bookmarks, err = g.canonical.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list canonical bookmarks: %w", err)
		}
		return response(bookmarks, false, MessageTransferInProgress, nil), nil
	}

	if g.metrics != nil {
		g.metrics.ObserveAutoTransfer()
	}

	bookmarks, err = g.canonical.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical bookmarks: %w", err)
	}

	msg := fmt.Sprintf("Auto-transferred %d of %d staging bookmarks", stats.Success, stats.Total)
	return response(bookmarks, true, msg, stats), nil
}

func response(bookmarks []*domain.CanonicalBookmark, auto bool, msg string, stats *domain.TransferResult) *domain.GateResponse {
	if bookmarks == nil {
		bookmarks = []*domain.CanonicalBookmark{}
	}
	return &domain.GateResponse{
		Bookmarks: bookmarks,
		Metadata: domain.GateMetadata{
			AutoTransfer:  auto,
			Message:       msg,
			Count:         len(bookmarks),
			TransferStats: stats,
		},
	}
}
