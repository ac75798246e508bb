package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
)

func TestOutboxCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	done, err := model.NewOutboxEvent(model.EventAppointmentBooked, map[string]string{"id": "1"})
	require.NoError(t, err)
	pending, err := model.NewOutboxEvent(model.EventAppointmentBooked, map[string]string{"id": "2"})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(ctx, done))
	require.NoError(t, store.Outbox().Create(ctx, pending))
	require.NoError(t, store.Outbox().UpdateStatus(ctx, done.ID, model.OutboxStatusProcessed, nil))

	w := NewOutboxCleanupWorker(store.Outbox(), 7, time.Minute)

	rows, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, rows)

	w.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	rows, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, pending.ID, events[0].ID)
}
