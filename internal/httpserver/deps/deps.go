package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/canon/internal/confidence"
	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
	redisstore "github.com/MrSnakeDoc/canon/internal/store/redis"
	"github.com/MrSnakeDoc/canon/internal/version"
)

// Gate serves the canonical read with auto-transfer.
type Gate interface {
	GetCanonicalBookmarksWithAutoTransfer(ctx context.Context, userID string) (*domain.GateResponse, error)
}

// Transferrer runs an explicit transfer.
type Transferrer interface {
	TransferUnorganizedBookmarks(ctx context.Context, userID string) (*domain.TransferResult, error)
}

// Bookmarks handles direct writes to the canonical store.
type Bookmarks interface {
	Add(ctx context.Context, userID string, body []byte) (*domain.CanonicalBookmark, bool, error)
	ApplyInsights(ctx context.Context, userID, id string, in *domain.Insights) (*domain.CanonicalBookmark, error)
}

// Reader loads a single canonical bookmark.
type Reader interface {
	GetByID(ctx context.Context, userID, id string) (*domain.CanonicalBookmark, error)
}

// Rescorer recomputes a bookmark's confidence.
type Rescorer interface {
	Rescore(ctx context.Context, userID, id string, sc confidence.Context) (*domain.CanonicalBookmark, error)
}

// LastRuns reads the last transfer summary of a user.
type LastRuns interface {
	GetLastRun(ctx context.Context, userID string) (*redisstore.RunSummary, error)
}

// Metrics is what the HTTP layer reports to and exposes.
type Metrics interface {
	Handler() http.Handler
	ObserveHTTPRequest(method, route string, status int)
}

// Check is one dependency probed by /readyz. A failing critical check makes the
// service not ready; a failing optional one only degrades it.
type Check struct {
	Name     string
	Critical bool
	Ping     func(ctx context.Context) error
}

// RateLimit configures the token bucket on POST /bookmarks/transfer.
type RateLimit struct {
	Burst        int
	RefillPerMin int
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Build         version.Info
	AllowedHosts  []string      // Host headers allowed to access the API
	AllowedCIDRS  []string      // IPs allowed to access readyz, metrics and import endpoints
	TrustProxy    bool          // true if running behind a trusted reverse proxy
	Gate          Gate          // GET /bookmarks
	Transfer      Transferrer   // POST /bookmarks/transfer
	Bookmarks     Bookmarks     // POST /bookmarks, PATCH /bookmarks/{id}
	Reader        Reader        // GET /bookmarks/{id}
	Confidence    Rescorer      // POST /bookmarks/{id}/confidence
	LastRuns      LastRuns      // nil when Redis is not configured
	Metrics       Metrics       // nil disables /metrics
	Checks        []Check       // probed by /readyz
	ImportTrigger chan struct{} // nil when no staging export is configured
	TransferLimit RateLimit
}
