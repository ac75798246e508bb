package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTryLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	ok, token, err := l.TryLock(ctx, "doctor|2025-11-27|09:40", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	ok, _, err = l.TryLock(ctx, "doctor|2025-11-27|09:40", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, _ = l.TryLock(ctx, "doctor|2025-11-27|10:00", time.Minute)
	assert.True(t, ok)

	assert.ErrorIs(t, l.Unlock(ctx, "doctor|2025-11-27|09:40", "someone-else"), ErrNotOwner)
	require.NoError(t, l.Unlock(ctx, "doctor|2025-11-27|09:40", token))

	ok, _, _ = l.TryLock(ctx, "doctor|2025-11-27|09:40", time.Minute)
	assert.True(t, ok)
}

func TestLocalExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 27, 9, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.clock = func() time.Time { return now }

	ok, _, _ := l.TryLock(ctx, "k", 5*time.Second)
	require.True(t, ok)

	now = now.Add(6 * time.Second)
	ok, _, _ = l.TryLock(ctx, "k", 5*time.Second)
	assert.True(t, ok)
}

func TestNoop(t *testing.T) {
	ok, _, err := Noop{}.TryLock(context.Background(), "k", time.Second)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, Noop{}.Unlock(context.Background(), "k", ""))
}
