package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/canon/internal/archive"
	"github.com/MrSnakeDoc/canon/internal/bookmarks"
	"github.com/MrSnakeDoc/canon/internal/confidence"
	"github.com/MrSnakeDoc/canon/internal/config"
	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/enrich"
	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/metrics"
	"github.com/MrSnakeDoc/canon/internal/redis"
	"github.com/MrSnakeDoc/canon/internal/store/memory"
	"github.com/MrSnakeDoc/canon/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/canon/internal/store/redis"
	"github.com/MrSnakeDoc/canon/internal/transfer"
	"github.com/MrSnakeDoc/canon/internal/validation"
)

// StagingStore is implemented by the Postgres and in-memory staging repositories.
type StagingStore interface {
	transfer.StagingRepository
	PendingUsers(ctx context.Context) ([]string, error)
	InsertBatch(ctx context.Context, batch []*domain.StagingBookmark) (int, error)
}

// CanonicalStore is implemented by the Postgres and in-memory canonical repositories.
type CanonicalStore interface {
	transfer.CanonicalRepository
	bookmarks.Repository
	confidence.Repository
}

// Components is the wired object graph shared by the server and the CLI commands.
type Components struct {
	Staging      StagingStore
	Canonical    CanonicalStore
	Metrics      *metrics.Metrics
	Orchestrator *transfer.Orchestrator
	Gate         *transfer.Gate
	Bookmarks    *bookmarks.Service
	Confidence   *confidence.Service
	RedisStore   *redisstore.Store // nil without Redis
	Checks       []deps.Check

	closers []func() error
}

// Build connects the stores and wires every service. Postgres and Redis are
// optional; without them the in-memory store and a process-local lock are used.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	c := &Components{Metrics: metrics.New()}

	if err := c.openStores(ctx, cfg, log); err != nil {
		_ = c.Close()
		return nil, err
	}

	recorders, err := c.recorders(ctx, cfg, log)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	var enricher enrich.Enricher = enrich.NewFetcher(enrich.Config{
		Timeout:      cfg.EnrichTimeout,
		MaxBodyBytes: cfg.EnrichMaxBodyBytes,
		UserAgent:    cfg.EnrichUserAgent,
	})
	var locker transfer.Locker = transfer.NewLocalLocker()
	if c.RedisStore != nil {
		enricher = enrich.NewCachedEnricher(enricher, c.RedisStore, cfg.EnrichCacheTTL, log, c.Metrics)
		locker = transfer.LockerFunc(c.RedisStore.AcquireTransferLock)
	}

	v := validation.New()
	c.Orchestrator = transfer.NewOrchestrator(transfer.Deps{
		Staging:   c.Staging,
		Canonical: c.Canonical,
		Validator: v,
		Enricher:  enricher,
		Logger:    log,
		Metrics:   c.Metrics,
		Locker:    locker,
		Recorder:  recorders,
	})
	c.Gate = transfer.NewGate(transfer.GateDeps{
		Canonical:   c.Canonical,
		Staging:     c.Staging,
		Transferrer: c.Orchestrator,
		Logger:      log,
		Metrics:     c.Metrics,
		Enabled:     cfg.AutoTransfer,
	})
	c.Bookmarks = bookmarks.NewService(c.Canonical, v, log)
	c.Confidence = confidence.NewService(c.Canonical, nil, log)

	return c, nil
}

func (c *Components) openStores(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if cfg.DBHost == "" {
		log.Warn("CANON_DB_HOST not set, using the in-memory store (data is lost on exit)")
		mem := memory.New()
		c.Staging, c.Canonical = mem.Staging(), mem.Canonical()
		c.Checks = append(c.Checks, deps.Check{Name: "database", Critical: true, Ping: mem.Ping})
	} else {
		log.Infof("Connecting to Postgres at %s:%d", cfg.DBHost, cfg.DBPort)
		db, err := postgres.Open(ctx, postgres.Config{
			Host:            cfg.DBHost,
			Port:            cfg.DBPort,
			User:            cfg.DBUser,
			Password:        cfg.DBPassword,
			Name:            cfg.DBName,
			SSLMode:         cfg.DBSSLMode,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
		c.Staging, c.Canonical = db.Staging(), db.Canonical()
		c.Checks = append(c.Checks, deps.Check{Name: "database", Critical: true, Ping: db.Ping})
		log.Info("Postgres initialized successfully")
	}

	if cfg.RedisAddr == "" {
		log.Warn("CANON_REDIS_ADDR not set, enrichment cache and run history disabled, transfer lock is process-local")
		return nil
	}

	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	c.RedisStore = redisstore.NewStore(client, cfg.TransferLockTTL)
	c.Checks = append(c.Checks, deps.Check{Name: "redis", Critical: false, Ping: c.RedisStore.Ping})
	log.Info("Redis initialized successfully")
	return nil
}

// recorders chains the run sinks: the Redis last-run summary and the archive.
func (c *Components) recorders(ctx context.Context, cfg *config.Config, log logger.Logger) (transfer.Recorders, error) {
	var rs transfer.Recorders
	if c.RedisStore != nil {
		rs = append(rs, transfer.RecorderFunc(c.RedisStore.SaveLastRun))
	}

	var store archive.Store
	switch cfg.ArchiveBackend {
	case archive.BackendLocal:
		local, err := archive.NewLocalStore(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		store = local
	case archive.BackendS3:
		s3, err := archive.NewS3Store(ctx, archive.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		store = s3
	default:
		return rs, nil
	}

	log.Info("transfer archive enabled", logger.String("backend", cfg.ArchiveBackend))
	return append(rs, archive.New(store)), nil
}

// Close releases the connections opened by Build, in reverse order.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
