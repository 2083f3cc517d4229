package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracked/backend/internal/metrics"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T, bufferSize int) (*Hub, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return NewHub(bufferSize, zap.NewNop(), m), m
}

func statusEvent(id int, status models.Status) Event {
	return StatusUpdateEvent(&models.StatusUpdate{
		ID:        id,
		Status:    status,
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
}

// drain reads every event currently buffered on the subscription
func drain(sub *Subscription) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestNewHub(t *testing.T) {
	tests := []struct {
		name           string
		bufferSize     int
		expectedBuffer int
	}{
		{name: "explicit buffer", bufferSize: 4, expectedBuffer: 4},
		{name: "zero falls back to default", bufferSize: 0, expectedBuffer: DefaultBufferSize},
		{name: "negative falls back to default", bufferSize: -3, expectedBuffer: DefaultBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, _ := newTestHub(t, tt.bufferSize)
			assert.Equal(t, tt.expectedBuffer, hub.bufferSize)
			assert.Equal(t, 0, hub.Len())
		})
	}
}

func TestHub_Subscribe_ConnectionEventFirst(t *testing.T) {
	hub, m := newTestHub(t, 4)

	sub, err := hub.Subscribe()
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID())

	hub.Publish(statusEvent(1, models.StatusCompleted))

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeConnection, events[0].Type)
	assert.Equal(t, sub.ID(), events[0].SubscriberID)
	assert.Equal(t, EventTypeStatusUpdate, events[1].Type)
	assert.Equal(t, 1, events[1].FeedbackID)

	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Subscribers))
}

func TestHub_Subscribe_UniqueIDs(t *testing.T) {
	hub, _ := newTestHub(t, 2)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		sub, err := hub.Subscribe()
		require.NoError(t, err)
		assert.False(t, seen[sub.ID()], "duplicate subscriber id %s", sub.ID())
		seen[sub.ID()] = true
	}
	assert.Equal(t, 10, hub.Len())
}

func TestHub_Publish(t *testing.T) {
	tests := []struct {
		name        string
		subscribers int
		expected    int
	}{
		{name: "no subscribers", subscribers: 0, expected: 0},
		{name: "single subscriber", subscribers: 1, expected: 1},
		{name: "several subscribers", subscribers: 5, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, m := newTestHub(t, 4)

			subs := make([]*Subscription, 0, tt.subscribers)
			for i := 0; i < tt.subscribers; i++ {
				sub, err := hub.Subscribe()
				require.NoError(t, err)
				subs = append(subs, sub)
			}

			delivered := hub.Publish(statusEvent(42, models.StatusCompleted))
			assert.Equal(t, tt.expected, delivered)

			for _, sub := range subs {
				events := drain(sub)
				require.Len(t, events, 2)
				assert.Equal(t, 42, events[1].FeedbackID)
				assert.Equal(t, models.StatusCompleted, events[1].Status)
				require.NotNil(t, events[1].UpdatedAt)
			}
			assert.Equal(t, float64(tt.expected),
				testutil.ToFloat64(m.EventsPublished.WithLabelValues(EventTypeStatusUpdate)))
		})
	}
}

func TestHub_Publish_PreservesOrder(t *testing.T) {
	hub, _ := newTestHub(t, 8)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Publish(statusEvent(1, models.StatusCompleted))
	hub.Publish(statusEvent(1, models.StatusInProgress))
	hub.Publish(statusEvent(2, models.StatusCompleted))

	events := drain(sub)
	require.Len(t, events, 4)
	assert.Equal(t, models.StatusCompleted, events[1].Status)
	assert.Equal(t, models.StatusInProgress, events[2].Status)
	assert.Equal(t, 2, events[3].FeedbackID)
}

func TestHub_Publish_EvictsSlowSubscriber(t *testing.T) {
	hub, m := newTestHub(t, 2)

	slow, err := hub.Subscribe()
	require.NoError(t, err)
	fast, err := hub.Subscribe()
	require.NoError(t, err)

	// connection event + one update fill the slow buffer
	assert.Equal(t, 2, hub.Publish(statusEvent(1, models.StatusCompleted)))
	drain(fast)

	delivered := hub.Publish(statusEvent(2, models.StatusCompleted))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubscribersEvicted))

	// the evicted channel is closed after its buffered events
	events := drain(slow)
	require.Len(t, events, 2)
	_, ok := <-slow.Events()
	assert.False(t, ok)

	// later publishes reach only the remaining subscriber
	assert.Equal(t, 1, hub.Publish(statusEvent(3, models.StatusInProgress)))
	fastEvents := drain(fast)
	require.Len(t, fastEvents, 2)
	assert.Equal(t, 3, fastEvents[1].FeedbackID)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, m := newTestHub(t, 4)

	first, err := hub.Subscribe()
	require.NoError(t, err)
	second, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Unsubscribe(first)
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Subscribers))

	// idempotent and nil safe
	assert.NotPanics(t, func() {
		hub.Unsubscribe(first)
		hub.Unsubscribe(nil)
	})
	assert.Equal(t, 1, hub.Len())

	assert.Equal(t, 1, hub.Publish(statusEvent(7, models.StatusCompleted)))
	events := drain(second)
	require.Len(t, events, 2)
}

func TestHub_Close(t *testing.T) {
	hub, m := newTestHub(t, 4)

	sub, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Subscribers))

	events := drain(sub)
	require.Len(t, events, 1)
	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, 0, hub.Publish(statusEvent(1, models.StatusCompleted)))

	assert.NotPanics(t, func() { hub.Unsubscribe(sub) })
}

func TestHub_Concurrent(t *testing.T) {
	hub, _ := newTestHub(t, 64)

	const (
		subscribers  = 20
		publishers   = 5
		perPublisher = 10
	)

	var wg sync.WaitGroup
	for i := 0; i < subscribers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := hub.Subscribe()
			if !assert.NoError(t, err) {
				return
			}
			defer hub.Unsubscribe(sub)
			for range sub.Events() {
				if len(sub.Events()) == 0 {
					return
				}
			}
		}()
	}
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				hub.Publish(statusEvent(id*100+j, models.StatusCompleted))
			}
		}(i)
	}

	wg.Wait()
	hub.Close()
	assert.Equal(t, 0, hub.Len())
}
