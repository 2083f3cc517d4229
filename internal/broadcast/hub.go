// Package broadcast fans feedback status changes out to live-update subscribers.
//
// The hub keeps its subscriber set in process memory only. Instances behind a
// load balancer do not see each other's subscribers, and nothing is replayed
// after a restart: delivery is best effort and at most once per subscriber.
package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tracked/backend/internal/metrics"
	"go.uber.org/zap"
)

// ErrHubClosed is returned by Subscribe after Close
var ErrHubClosed = errors.New("broadcast hub is closed")

// DefaultBufferSize is the number of events a subscriber may lag behind before it is evicted
const DefaultBufferSize = 16

// Subscription is the handle of one connected subscriber
type Subscription struct {
	id     string
	events chan Event
}

// ID returns the generated subscriber identifier
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the channel the subscriber reads from.
// The channel is closed when the subscription is removed from the hub.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Hub owns the set of active subscriptions
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	closed      bool
	bufferSize  int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewHub creates a new hub.
// bufferSize values below 1 fall back to DefaultBufferSize.
func NewHub(bufferSize int, logger *zap.Logger, m *metrics.Metrics) *Hub {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subscribers: make(map[string]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger,
		metrics:     m,
	}
}

// Subscribe registers a new subscriber.
// The "connection" event is queued on the subscription before it becomes
// visible to Publish, so it is always the first event the subscriber reads.
func (h *Hub) Subscribe() (*Subscription, error) {
	sub := &Subscription{
		id:     uuid.New().String(),
		events: make(chan Event, h.bufferSize),
	}
	sub.events <- connectionEvent(sub.id)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.Subscribers.Set(float64(count))
	h.metrics.EventsPublished.WithLabelValues(EventTypeConnection).Inc()
	h.logger.Debug("subscriber connected", zap.String("subscriber_id", sub.id), zap.Int("subscribers", count))
	return sub, nil
}

// Unsubscribe removes the subscriber and closes its channel.
// It is safe to call more than once and with a nil subscription.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	current, ok := h.subscribers[sub.id]
	if !ok || current != sub {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, sub.id)
	close(sub.events)
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.Subscribers.Set(float64(count))
	h.logger.Debug("subscriber disconnected", zap.String("subscriber_id", sub.id), zap.Int("subscribers", count))
}

// Publish delivers the event to every subscriber registered at call time and
// returns how many received it. A subscriber whose buffer is full is treated
// as disconnected and removed; it never delays delivery to the others.
func (h *Hub) Publish(event Event) int {
	var (
		delivered int
		failed    []*Subscription
	)

	// Sends happen under the read lock so Unsubscribe cannot close a channel mid-send.
	h.mu.RLock()
	for _, sub := range h.subscribers {
		select {
		case sub.events <- event:
			delivered++
		default:
			failed = append(failed, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range failed {
		h.logger.Warn("evicting slow subscriber",
			zap.String("subscriber_id", sub.id),
			zap.String("event_type", event.Type),
		)
		h.Unsubscribe(sub)
		h.metrics.SubscribersEvicted.Inc()
	}

	h.metrics.EventsPublished.WithLabelValues(event.Type).Add(float64(delivered))
	return delivered
}

// Len returns the number of active subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close removes every subscriber and rejects further subscriptions.
// Streams reading from a closed subscription end on their own.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		close(sub.events)
	}
	h.mu.Unlock()

	h.metrics.Subscribers.Set(0)
	h.logger.Info("broadcast hub closed")
}
