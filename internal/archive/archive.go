// Package archive keeps a JSON copy of every finished transfer run, on the local
// filesystem or in an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// Backends accepted by the configuration.
const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Store writes and reads archive objects by key. Keys always use forward slashes.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Entry is the archived document.
type Entry struct {
	UserID     string                 `json:"user_id"`
	FinishedAt time.Time              `json:"finished_at"`
	Result     *domain.TransferResult `json:"result"`
}

// Archive records transfer runs into a Store.
type Archive struct {
	store Store
	newID func() string
}

// New creates a new archive on top of store
func New(store Store) *Archive {
	return &Archive{store: store, newID: uuid.NewString}
}

// Record stores the run under transfers/<user>/YYYY/MM/<timestamp>-<id>.json.
func (a *Archive) Record(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error {
	data, err := json.MarshalIndent(Entry{UserID: userID, FinishedAt: finishedAt.UTC(), Result: result}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transfer run: %w", err)
	}

	key := Key(userID, finishedAt, a.newID())
	if err := a.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to archive transfer run %s: %w", key, err)
	}
	return nil
}

// Load reads an archived run back.
func (a *Archive) Load(ctx context.Context, key string) (*Entry, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer run %s: %w", key, err)
	}
	return &e, nil
}

// Key builds the object key of a run. The user id is path-escaped so it always
// stays a single segment.
func Key(userID string, finishedAt time.Time, id string) string {
	t := finishedAt.UTC()
	return path.Join(
		"transfers",
		url.PathEscape(userID),
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		t.Format("20060102T150405Z")+"-"+id+".json",
	)
}
