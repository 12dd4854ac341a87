package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// PendingLister finds users with unorganized staging rows.
type PendingLister interface {
	PendingUsers(ctx context.Context) ([]string, error)
}

// Transferrer runs a transfer for one user.
type Transferrer interface {
	TransferUnorganizedBookmarks(ctx context.Context, userID string) (*domain.TransferResult, error)
}

// TransferSweeper periodically promotes pending staging rows of every user, so a
// backlog does not wait for the user's next read.
type TransferSweeper struct {
	pending  PendingLister
	transfer Transferrer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewTransferSweeper creates a new transfer sweeper
func NewTransferSweeper(
	pending PendingLister,
	transfer Transferrer,
	log logger.Logger,
	interval time.Duration,
) *TransferSweeper {
	return &TransferSweeper{
		pending:  pending,
		transfer: transfer,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps on every tick. The first sweep waits for the first tick so the
// service can finish starting.
func (ts *TransferSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(ts.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ts.Sweep(ctx); err != nil {
					ts.logger.Error("transfer sweep failed",
						logger.Error(err))
				}
			case <-ts.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (ts *TransferSweeper) Stop() {
	close(ts.stopCh)
}

// Sweep runs one transfer per pending user. A user whose run fails or is already
// running is skipped; the others still run.
func (ts *TransferSweeper) Sweep(ctx context.Context) error {
	users, err := ts.pending.PendingUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending users: %w", err)
	}
	if len(users) == 0 {
		ts.logger.Debug("no pending staging bookmarks to sweep")
		return nil
	}

	promoted := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		res, err := ts.transfer.TransferUnorganizedBookmarks(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrTransferInProgress) {
				ts.logger.Debug("transfer already running, skipping user",
					logger.String("user_id", userID))
				continue
			}
			ts.logger.Warn("sweep transfer failed",
				logger.String("user_id", userID),
				logger.Error(err))
			continue
		}
		promoted += res.Success
	}

	ts.logger.Info("transfer sweep completed",
		logger.Int("users", len(users)),
		logger.Int("promoted", promoted))

	return nil
}
