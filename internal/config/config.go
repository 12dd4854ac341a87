package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const redacted = "***REDACTED***"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, covers a full transfer run

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Postgres (empty host => in-memory store, for local runs only)
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis (empty addr => no enrichment cache, process-local transfer lock, no run history)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Enrichment
	EnrichTimeout      time.Duration
	EnrichMaxBodyBytes int64
	EnrichUserAgent    string
	EnrichCacheTTL     time.Duration

	// Transfer
	AutoTransfer          bool          // gate promotes staging rows on an empty canonical read
	TransferLockTTL       time.Duration // Redis lock expiry, must outlive a run
	TransferSweepInterval time.Duration // 0 disables the background sweeper
	TransferBurst         int           // POST /bookmarks/transfer rate limit per user
	TransferRefillPerMin  int

	// Archive of finished transfer runs
	ArchiveBackend string // "none" | "local" | "s3"
	ArchivePath    string
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3Prefix       string
	S3AccessKeyID  string
	S3SecretKey    string
	S3UsePathStyle bool

	// Staging import (empty file => importer disabled)
	ImportFile     string
	ImportUser     string
	ImportInterval time.Duration

	// Tracing (empty endpoint => no exporter)
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("CANON_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("CANON_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("CANON_REQUEST_TIMEOUT", 2*time.Minute),

		// Logging
		LogLevel:  getenv("CANON_LOG_LEVEL", "info"),
		PrettyLog: mustBool("CANON_PRETTY_LOG", false),

		// Postgres
		DBHost:            getenv("CANON_DB_HOST", ""),
		DBPort:            getenvInt("CANON_DB_PORT", 5432),
		DBUser:            getenv("CANON_DB_USER", "canon"),
		DBPassword:        getenv("CANON_DB_PASSWORD", ""),
		DBName:            getenv("CANON_DB_NAME", "canon"),
		DBSSLMode:         getenv("CANON_DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getenvInt("CANON_DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getenvInt("CANON_DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: mustDuration("CANON_DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Redis settings
		RedisAddr:           getenv("CANON_REDIS_ADDR", ""),
		RedisUser:           getenv("CANON_REDIS_USERNAME", ""),
		RedisPassword:       getenv("CANON_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("CANON_REDIS_DB", 0),
		RedisDT:             mustDuration("CANON_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("CANON_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("CANON_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("CANON_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("CANON_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("CANON_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("CANON_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("CANON_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("CANON_REDIS_WARN_THRESHOLD", 3),

		// Enrichment
		EnrichTimeout:      mustDuration("CANON_ENRICH_TIMEOUT", 10*time.Second),
		EnrichMaxBodyBytes: int64(getenvInt("CANON_ENRICH_MAX_BODY_BYTES", 1<<20)),
		EnrichUserAgent:    getenv("CANON_ENRICH_USER_AGENT", ""),
		EnrichCacheTTL:     mustDuration("CANON_ENRICH_CACHE_TTL", 24*time.Hour),

		// Transfer
		AutoTransfer:          mustBool("CANON_AUTO_TRANSFER", true),
		TransferLockTTL:       mustDuration("CANON_TRANSFER_LOCK_TTL", 10*time.Minute),
		TransferSweepInterval: mustDuration("CANON_TRANSFER_SWEEP_INTERVAL", 0),
		TransferBurst:         getenvInt("CANON_TRANSFER_BURST", 3),
		TransferRefillPerMin:  getenvInt("CANON_TRANSFER_REFILL_PER_MIN", 6),

		// Archive
		ArchiveBackend: strings.ToLower(getenv("CANON_ARCHIVE_BACKEND", "none")),
		ArchivePath:    getenv("CANON_ARCHIVE_PATH", "/var/lib/canon/archive"),
		S3Endpoint:     getenv("CANON_S3_ENDPOINT", ""),
		S3Region:       getenv("CANON_S3_REGION", "us-east-1"),
		S3Bucket:       getenv("CANON_S3_BUCKET", ""),
		S3Prefix:       getenv("CANON_S3_PREFIX", ""),
		S3AccessKeyID:  getenv("CANON_S3_ACCESS_KEY_ID", ""),
		S3SecretKey:    getenv("CANON_S3_SECRET_ACCESS_KEY", ""),
		S3UsePathStyle: mustBool("CANON_S3_USE_PATH_STYLE", false),

		// Staging import
		ImportFile:     getenv("CANON_IMPORT_FILE", ""),
		ImportUser:     getenv("CANON_IMPORT_USER", ""),
		ImportInterval: mustDuration("CANON_IMPORT_INTERVAL", 24*time.Hour),

		// Tracing
		OTLPEndpoint:    getenv("CANON_OTLP_ENDPOINT", ""),
		OTLPInsecure:    mustBool("CANON_OTLP_INSECURE", true),
		TraceSampleRate: getenvFloat("CANON_TRACE_SAMPLE_RATE", 1.0),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("CANON_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("CANON_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("CANON_TRUST_PROXY", false),
	}

	switch cfg.ArchiveBackend {
	case "none", "local":
	case "s3":
		if cfg.S3Bucket == "" {
			panic("❌ FATAL: CANON_S3_BUCKET is required when CANON_ARCHIVE_BACKEND=s3")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid CANON_ARCHIVE_BACKEND %q (want none, local or s3)", cfg.ArchiveBackend))
	}

	if cfg.ImportFile != "" && cfg.ImportInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: CANON_IMPORT_INTERVAL must be positive when CANON_IMPORT_FILE is set, got %s", cfg.ImportInterval))
	}

	if cfg.DBHost != "" && cfg.DBPassword == "" {
		cfg.DBPassword = requireEnv("CANON_DB_PASSWORD")
	}

	return cfg
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.DBPassword != "" {
		cp.DBPassword = redacted
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.RedisUser != "" {
		cp.RedisUser = redacted
	}
	if cp.S3SecretKey != "" {
		cp.S3SecretKey = redacted
	}
	if cp.S3AccessKeyID != "" {
		cp.S3AccessKeyID = redacted
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
