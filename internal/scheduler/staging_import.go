// Package scheduler runs the periodic background jobs: staging imports and
// transfer sweeps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/sources/raindrop"
)

// StagingWriter is the part of the staging store the importer needs.
type StagingWriter interface {
	InsertBatch(ctx context.Context, batch []*domain.StagingBookmark) (int, error)
}

// ImportObserver counts imported rows.
type ImportObserver interface {
	ObserveStagingImport(n int)
}

// StagingImporter handles periodic imports of a Raindrop export into the staging store
type StagingImporter struct {
	loader        *raindrop.Loader
	mapper        *raindrop.Mapper
	store         StagingWriter
	observer      ImportObserver
	logger        logger.Logger
	defaultUser   string
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewStagingImporter creates a new staging importer
func NewStagingImporter(
	exportFile string,
	defaultUser string,
	store StagingWriter,
	observer ImportObserver,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *StagingImporter {
	return &StagingImporter{
		loader:        raindrop.NewLoader(exportFile),
		mapper:        raindrop.NewMapper(),
		store:         store,
		observer:      observer,
		logger:        log,
		defaultUser:   defaultUser,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then on every tick or manual trigger
func (si *StagingImporter) Start(ctx context.Context) error {
	if _, err := si.Import(ctx); err != nil {
		return fmt.Errorf("initial staging import failed: %w", err)
	}

	ticker := time.NewTicker(si.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := si.Import(ctx); err != nil {
					si.logger.Error("failed to import staging bookmarks",
						logger.Error(err))
				}
			case <-si.manualTrigger:
				si.logger.Info("manual staging import triggered")
				if _, err := si.Import(ctx); err != nil {
					si.logger.Error("failed to import staging bookmarks",
						logger.Error(err))
				}
			case <-si.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the importer
func (si *StagingImporter) Stop() {
	close(si.stopCh)
}

// Import loads the export file and writes it to the staging store in one batch.
// It returns the number of rows written.
func (si *StagingImporter) Import(ctx context.Context) (int, error) {
	si.logger.Info("importing staging bookmarks")

	export, err := si.loader.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load export: %w", err)
	}

	batch, err := si.mapper.MapBookmarks(export, si.defaultUser)
	if err != nil {
		return 0, fmt.Errorf("failed to map export: %w", err)
	}
	if len(batch) == 0 {
		si.logger.Warn("export contains no bookmarks")
		return 0, nil
	}

	n, err := si.store.InsertBatch(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to write staging batch: %w", err)
	}

	if si.observer != nil {
		si.observer.ObserveStagingImport(n)
	}
	si.logger.Info("staging bookmarks imported",
		logger.String("user_id", batch[0].UserID),
		logger.Int("count", n))

	return n, nil
}
