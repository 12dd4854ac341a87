package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// releaseScript deletes the lock only if it still holds our token, so a run that
// outlived its TTL cannot release a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireTransferLock takes the user's transfer lock. It returns
// domain.ErrTransferInProgress when another run holds it. The returned release
// func is safe to call more than once.
func (s *Store) AcquireTransferLock(ctx context.Context, userID string) (func(), error) {
	key := TransferLockKey(userID)
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire transfer lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrTransferInProgress
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The caller's context may already be cancelled; the release must still go out.
		_ = releaseScript.Run(context.Background(), s.client, []string{key}, token).Err()
	}, nil
}
