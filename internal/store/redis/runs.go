package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// RunSummary is the last transfer run of a user.
type RunSummary struct {
	UserID     string                 `json:"user_id"`
	FinishedAt time.Time              `json:"finished_at"`
	Result     *domain.TransferResult `json:"result"`
}

// SaveLastRun stores the summary of a finished transfer run
func (s *Store) SaveLastRun(ctx context.Context, userID string, finishedAt time.Time, result *domain.TransferResult) error {
	data, err := json.Marshal(RunSummary{UserID: userID, FinishedAt: finishedAt, Result: result})
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := s.client.Set(ctx, LastRunKey(userID), data, s.runTTL).Err(); err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// GetLastRun returns the user's last run summary, or domain.ErrNotFound
func (s *Store) GetLastRun(ctx context.Context, userID string) (*RunSummary, error) {
	data, err := s.client.Get(ctx, LastRunKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}

	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}
