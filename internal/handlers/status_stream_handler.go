package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/middleware"
	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is used when no positive heartbeat interval is configured
const DefaultHeartbeatInterval = 30 * time.Second

// StatusSubscriber hands out live-update subscriptions
type StatusSubscriber interface {
	Subscribe() (*broadcast.Subscription, error)
	Unsubscribe(sub *broadcast.Subscription)
}

// StatusStreamHandler streams feedback status changes as Server-Sent Events
type StatusStreamHandler struct {
	BaseHandler
	hub       StatusSubscriber
	heartbeat time.Duration
}

// NewStatusStreamHandler creates a new status stream handler.
// A heartbeat comment is written every "heartbeat" to keep proxies from closing idle connections.
func NewStatusStreamHandler(hub StatusSubscriber, heartbeat time.Duration, logger *zap.Logger) *StatusStreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &StatusStreamHandler{
		BaseHandler: BaseHandler{logger: logger},
		hub:         hub,
		heartbeat:   heartbeat,
	}
}

// ServeHTTP handles GET /feedback/status-updates
// @Summary Live status updates
// @Description Server-Sent Events stream. The first frame is a connection event with the subscriber id, every later frame is a status_update event. Lines starting with ':' are heartbeats.
// @Tags feedback
// @Produce text/event-stream
// @Security ApiKeyAuth
// @Success 200 {object} broadcast.Event
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /feedback/status-updates [get]
func (h *StatusStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub, err := h.hub.Subscribe()
	if err != nil {
		h.logger.Warn("failed to subscribe to status updates", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, "live updates are unavailable")
		return
	}
	defer h.hub.Unsubscribe(sub)

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("failed to clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming is not supported by the response writer", zap.Error(err))
		return
	}

	logger := h.logger.With(
		zap.String("subscriber_id", sub.ID()),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	logger.Debug("status stream opened")
	defer logger.Debug("status stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Evicted or hub closed
				return
			}
			if err := writeEvent(w, event); err != nil {
				logger.Debug("failed to write status event", zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				logger.Debug("failed to write heartbeat", zap.Error(err))
				return
			}
		case <-r.Context().Done():
			return
		}

		if err := rc.Flush(); err != nil {
			logger.Debug("failed to flush status stream", zap.Error(err))
			return
		}
	}
}

// writeEvent writes one SSE data frame
func writeEvent(w http.ResponseWriter, event broadcast.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
