// Package postgres is the relational backing store for staging and canonical bookmarks.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config contains database connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a lib/pq connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	return u.String()
}

// DB wraps the connection pool shared by both repositories.
type DB struct {
	conn *sql.DB
}

// Open connects, configures the pool and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	return OpenDSN(ctx, cfg.DSN(), cfg)
}

// OpenDSN is Open with an explicit connection string. Pool settings are read from cfg.
func OpenDSN(ctx context.Context, dsn string, cfg Config) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	conn.SetConnMaxLifetime(lifetime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// SQL exposes the pool, mainly for tests.
func (db *DB) SQL() *sql.DB {
	return db.conn
}

// Staging returns the staging repository backed by this pool.
func (db *DB) Staging() *StagingRepository {
	return &StagingRepository{db: db.conn}
}

// Canonical returns the canonical repository backed by this pool.
func (db *DB) Canonical() *CanonicalRepository {
	return &CanonicalRepository{db: db.conn}
}
