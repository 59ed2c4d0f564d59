package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHub creates a hub with batch size of 1 for immediate event delivery in tests.
func newTestHub() *Hub {
	return NewHubWithConfig(&Config{
		EventQueueSize:        DefaultEventQueueSize,
		BatchSize:             1,
		FlushInterval:         DefaultFlushInterval,
		RateLimit:             DefaultRateLimit,
		SubscriberChannelSize: DefaultSubscriberChannelSize,
	})
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	require.NotNil(t, hub)
	assert.NotNil(t, hub.subscribers)
	assert.False(t, hub.closed)
}

func TestHubPublishSubscribe(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	event := Event{
		Type:      EventTaskStarted,
		SessionID: "session-1",
		TaskID:    "task-1",
		Data:      map[string]any{"task": "index source tree"},
	}
	hub.Publish(event)

	select {
	case received := <-ch:
		assert.Equal(t, EventTaskStarted, received.Type)
		assert.Equal(t, "session-1", received.SessionID)
		assert.Equal(t, "task-1", received.TaskID)
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ch1, unsub1 := hub.Subscribe()
	defer unsub1()
	ch2, unsub2 := hub.Subscribe()
	defer unsub2()

	hub.Publish(Event{Type: EventToolStarted, SessionID: "s"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventToolStarted, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event on one of the subscribers")
		}
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	unsub()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestHubPublishAfterCloseIsNoop(t *testing.T) {
	hub := newTestHub()
	hub.Close()

	require.NotPanics(t, func() {
		hub.Publish(Event{Type: EventPlanCreated})
	})
}

func TestHubSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	hub := newTestHub()
	hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestHubFlushDeliversBatchedEvents(t *testing.T) {
	hub := NewHubWithConfig(&Config{
		EventQueueSize:        DefaultEventQueueSize,
		BatchSize:             100,
		FlushInterval:         time.Hour,
		RateLimit:             DefaultRateLimit,
		SubscriberChannelSize: DefaultSubscriberChannelSize,
	})
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	hub.Publish(Event{Type: EventBuilderStarted})
	time.Sleep(10 * time.Millisecond)
	hub.Flush()

	select {
	case ev := <-ch:
		assert.Equal(t, EventBuilderStarted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("Flush did not deliver the buffered event")
	}
}

func TestDefaultConfigFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	hub := NewHubWithConfig(cfg)
	defer hub.Close()

	require.Equal(t, DefaultEventQueueSize, cfg.EventQueueSize)
	require.Equal(t, DefaultBatchSize, cfg.BatchSize)
	require.Equal(t, DefaultFlushInterval, cfg.FlushInterval)
	require.Equal(t, DefaultRateLimit, cfg.RateLimit)
	require.Equal(t, DefaultSubscriberChannelSize, cfg.SubscriberChannelSize)
}
