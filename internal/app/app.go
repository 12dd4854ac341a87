package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/canon/internal/config"
	"github.com/MrSnakeDoc/canon/internal/httpserver"
	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/scheduler"
	"github.com/MrSnakeDoc/canon/internal/tracing"
	"github.com/MrSnakeDoc/canon/internal/version"
)

const serviceName = "canon"

type App struct {
	cfg             *config.Config
	logger          logger.Logger
	components      *Components
	server          *httpserver.Server
	importer        *scheduler.StagingImporter
	sweeper         *scheduler.TransferSweeper
	shutdownTracing func(context.Context) error
}

// New wires the service. Connections are opened here so a misconfigured
// dependency fails before the listener starts.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	if cfg.LogLevel == "debug" {
		loggerClient.Debugf("cfg: %+v", cfg.Redacted())
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRatio:    cfg.TraceSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	c, err := Build(ctx, cfg, loggerClient)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	// Initialize staging importer (if an export file is configured)
	var importer *scheduler.StagingImporter
	var importTrigger chan struct{}
	if cfg.ImportFile != "" {
		loggerClient.Info("staging export configured, initializing importer",
			logger.String("file", cfg.ImportFile))
		importTrigger = make(chan struct{}, 1)
		importer = scheduler.NewStagingImporter(
			cfg.ImportFile,
			cfg.ImportUser,
			c.Staging,
			c.Metrics,
			loggerClient,
			cfg.ImportInterval,
			importTrigger,
		)
	} else {
		loggerClient.Info("staging export not configured, importer disabled")
	}

	var sweeper *scheduler.TransferSweeper
	if cfg.TransferSweepInterval > 0 {
		sweeper = scheduler.NewTransferSweeper(c.Staging, c.Orchestrator, loggerClient, cfg.TransferSweepInterval)
	}

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Build:         version.Get(),
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Gate:          c.Gate,
		Transfer:      c.Orchestrator,
		Bookmarks:     c.Bookmarks,
		Reader:        c.Canonical,
		Confidence:    c.Confidence,
		Metrics:       c.Metrics,
		Checks:        c.Checks,
		ImportTrigger: importTrigger,
		TransferLimit: deps.RateLimit{Burst: cfg.TransferBurst, RefillPerMin: cfg.TransferRefillPerMin},
	}
	if c.RedisStore != nil {
		d.LastRuns = c.RedisStore
	}

	return &App{
		cfg:             cfg,
		logger:          loggerClient,
		components:      c,
		server:          httpserver.New(cfg, loggerClient, d),
		importer:        importer,
		sweeper:         sweeper,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run serves until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting canon %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.Get().String())

	defer a.close()

	// Start staging importer (imports once, then refreshes periodically)
	if a.importer != nil {
		if err := a.importer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start staging importer: %w", err)
		}
		a.logger.Info("staging importer started",
			logger.Duration("interval", a.cfg.ImportInterval))
	}

	if a.sweeper != nil {
		if err := a.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start transfer sweeper: %w", err)
		}
		a.logger.Info("transfer sweeper started",
			logger.Duration("interval", a.cfg.TransferSweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.importer != nil {
		a.importer.Stop()
	}
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ canon stopped cleanly")
	return nil
}

func (a *App) close() {
	if err := a.components.Close(); err != nil {
		a.logger.Warnf("failed to close connections: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Warnf("failed to flush traces: %v", err)
	}
}
