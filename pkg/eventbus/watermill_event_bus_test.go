package eventbus_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloflow/veloflow/pkg/channels/gochannel"
	"github.com/veloflow/veloflow/pkg/eventbus"
	"github.com/veloflow/veloflow/pkg/events"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishReachesHandler(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		received []*events.ExecutionCompleted
	)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		if !ok {
			return nil
		}

		mu.Lock()
		received = append(received, completed)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	published := events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{
			ID:          bus.GenerateID(),
			Type:        events.ExecutionCompletedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  "wf-1",
			ExecutionID: "exec-1",
		},
		Output: "done",
	}

	require.NoError(t, bus.Publish(t.Context(), string(events.ExecutionCompletedEvent), published))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "exec-1", received[0].ExecutionID)
	assert.Equal(t, "done", received[0].Output)
}

func TestEventsWithoutHandlerAreAcked(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	var (
		mu    sync.Mutex
		calls int
	)

	err := bus.Handle(events.NodeFinishedEvent, func(context.Context, any) error {
		mu.Lock()
		calls++
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	// No handler registered for execution.failed; it must be dropped
	// without blocking later deliveries.
	require.NoError(t, bus.Publish(t.Context(), string(events.ExecutionFailedEvent), events.ExecutionFailed{
		BaseEvent: events.BaseEvent{Type: events.ExecutionFailedEvent, ExecutionID: "exec-1"},
	}))
	require.NoError(t, bus.Publish(t.Context(), string(events.NodeFinishedEvent), events.NodeFinished{
		BaseEvent: events.BaseEvent{Type: events.NodeFinishedEvent, ExecutionID: "exec-1"},
		NodeID:    "a",
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return calls == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDuplicateHandlerRejected(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	handler := func(context.Context, any) error { return nil }

	require.NoError(t, bus.Handle(events.ExecutionStartedEvent, handler))
	require.ErrorIs(t, bus.Handle(events.ExecutionStartedEvent, handler), eventbus.ErrHandlerRegistered)
}
