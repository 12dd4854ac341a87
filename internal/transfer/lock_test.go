package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/canon/internal/domain"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "alice")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrTransferInProgress)

	releaseBob, err := l.Acquire(ctx, "bob")
	require.NoError(t, err, "users do not block each other")
	releaseBob()

	release()
	release()

	again, err := l.Acquire(ctx, "alice")
	require.NoError(t, err)
	again()
}

func TestLockerFunc(t *testing.T) {
	called := ""
	var l Locker = LockerFunc(func(_ context.Context, userID string) (func(), error) {
		called = userID
		return func() {}, nil
	})

	release, err := l.Acquire(context.Background(), "carol")
	require.NoError(t, err)
	release()
	assert.Equal(t, "carol", called)
}
