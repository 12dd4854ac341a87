package transfer

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

// LocalLocker serializes runs per user inside a single process. It is used when
// no Redis is configured.
type LocalLocker struct {
	mu      sync.Mutex
	running map[string]bool
}

// NewLocalLocker creates a new in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{running: make(map[string]bool)}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, userID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running[userID] {
		return nil, domain.ErrTransferInProgress
	}
	l.running[userID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.running, userID)
			l.mu.Unlock()
		})
	}, nil
}
