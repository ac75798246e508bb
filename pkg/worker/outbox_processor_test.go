package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

type flakyBroker struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []messaging.Message
}

func (b *flakyBroker) Publish(_ context.Context, _ string, msg messaging.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failures > 0 {
		b.failures--
		return errors.New("connection refused")
	}
	b.sent = append(b.sent, msg)
	return nil
}

func (b *flakyBroker) Subscribe(context.Context, string) (<-chan messaging.Message, error) {
	return nil, errors.New("not supported")
}

func (b *flakyBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  10 * time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		Channel:       "hospital.appointments",
	}
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func seed(t *testing.T, store *memory.Store, n int) []*model.OutboxEvent {
	t.Helper()
	var out []*model.OutboxEvent
	for i := 0; i < n; i++ {
		e, err := model.NewOutboxEvent(model.EventAppointmentBooked, map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, store.Outbox().Create(context.Background(), e))
		out = append(out, e)
	}
	return out
}

func TestProcessBatchPublishes(t *testing.T) {
	store := memory.New()
	events := seed(t, store, 2)
	broker := &flakyBroker{failures: 1}

	p, err := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), metrics.New("test"))
	require.NoError(t, err)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, broker.calls)
	require.Len(t, broker.sent, 2)
	assert.Equal(t, events[0].ID.String(), broker.sent[0].ID)
	assert.Equal(t, model.EventAppointmentBooked, broker.sent[0].Type)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(broker.sent[1].Payload, &payload))
	assert.Equal(t, 1, payload["n"])

	for _, e := range store.Events() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
	}

	n, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchMarksFailed(t *testing.T) {
	store := memory.New()
	seed(t, store, 1)
	broker := &flakyBroker{failures: 10}

	p, err := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), metrics.New("test"))
	require.NoError(t, err)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, broker.calls)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusFailed, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Equal(t, "connection refused", *events[0].ErrorMessage)
}

func TestProcessorDeliversThroughLocalBroker(t *testing.T) {
	store := memory.New()
	seed(t, store, 1)
	broker := messaging.NewLocal(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := broker.Subscribe(ctx, "hospital.appointments")
	require.NoError(t, err)

	p, err := NewOutboxProcessor(store.Outbox(), broker, testConfig(), quietLogger(), metrics.New("test"))
	require.NoError(t, err)
	go p.Start(ctx)

	select {
	case msg := <-sub:
		assert.Equal(t, model.EventAppointmentBooked, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	_, err := NewOutboxProcessor(nil, nil, cfg, quietLogger(), metrics.New("test"))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Channel = ""
	assert.Error(t, cfg.Validate())
	assert.NoError(t, testConfig().Validate())
}
