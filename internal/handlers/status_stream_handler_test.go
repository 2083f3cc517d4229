package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracked/backend/internal/broadcast"
	"github.com/tracked/backend/internal/metrics"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

func newStreamServer(t *testing.T, heartbeat time.Duration) (*broadcast.Hub, *httptest.Server) {
	t.Helper()
	hub := broadcast.NewHub(8, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
	srv := httptest.NewServer(NewStatusStreamHandler(hub, heartbeat, zap.NewNop()))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

// openStream connects to the stream and returns a reader positioned at the first frame
func openStream(t *testing.T, ctx context.Context, url string) (*http.Response, *bufio.Reader) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp, bufio.NewReader(resp.Body)
}

// readFrame reads one SSE frame (up to the blank line) and returns its lines
func readFrame(t *testing.T, reader *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func readEvent(t *testing.T, reader *bufio.Reader) broadcast.Event {
	t.Helper()
	lines := readFrame(t, reader)
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], "data: "), lines[0])

	var event broadcast.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[0], "data: ")), &event))
	return event
}

func TestStatusStreamHandler_Headers(t *testing.T) {
	_, srv := newStreamServer(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp, _ := openStream(t, ctx, srv.URL)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))
}

func TestStatusStreamHandler_ConnectionThenStatusUpdate(t *testing.T) {
	hub, srv := newStreamServer(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, reader := openStream(t, ctx, srv.URL)

	connected := readEvent(t, reader)
	assert.Equal(t, broadcast.EventTypeConnection, connected.Type)
	assert.NotEmpty(t, connected.SubscriberID)
	assert.Equal(t, 1, hub.Len())

	delivered := hub.Publish(broadcast.StatusUpdateEvent(&models.StatusUpdate{ID: 12, Status: models.StatusCompleted, UpdatedAt: testTime}))
	assert.Equal(t, 1, delivered)

	update := readEvent(t, reader)
	assert.Equal(t, broadcast.EventTypeStatusUpdate, update.Type)
	assert.Equal(t, 12, update.FeedbackID)
	assert.Equal(t, models.StatusCompleted, update.Status)
	require.NotNil(t, update.UpdatedAt)
	assert.True(t, testTime.Equal(*update.UpdatedAt))
}

func TestStatusStreamHandler_Heartbeat(t *testing.T) {
	_, srv := newStreamServer(t, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, reader := openStream(t, ctx, srv.URL)
	readEvent(t, reader)

	assert.Equal(t, []string{": heartbeat"}, readFrame(t, reader))
}

func TestStatusStreamHandler_DisconnectUnsubscribes(t *testing.T) {
	hub, srv := newStreamServer(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	_, reader := openStream(t, ctx, srv.URL)
	readEvent(t, reader)
	require.Equal(t, 1, hub.Len())

	cancel()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusStreamHandler_HubClosedEndsStream(t *testing.T) {
	hub, srv := newStreamServer(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, reader := openStream(t, ctx, srv.URL)
	readEvent(t, reader)

	hub.Close()

	_, err := reader.ReadString('\n')
	assert.Error(t, err)
}

// failingStreamWriter accepts the first failAfter writes and rejects every later one,
// like a client connection that drops mid-stream
type failingStreamWriter struct {
	header    http.Header
	failAfter int32
	writes    atomic.Int32
}

func (w *failingStreamWriter) Header() http.Header { return w.header }

func (w *failingStreamWriter) WriteHeader(statusCode int) {}

func (w *failingStreamWriter) Write(p []byte) (int, error) {
	if w.writes.Add(1) > w.failAfter {
		return 0, errors.New("broken pipe")
	}
	return len(p), nil
}

func (w *failingStreamWriter) Flush() {}

func TestStatusStreamHandler_WriteFailureUnsubscribes(t *testing.T) {
	tests := []struct {
		name      string
		heartbeat time.Duration
		trigger   func(hub *broadcast.Hub)
	}{
		{
			name:      "status event",
			heartbeat: time.Minute,
			trigger: func(hub *broadcast.Hub) {
				hub.Publish(broadcast.StatusUpdateEvent(&models.StatusUpdate{ID: 3, Status: models.StatusCompleted, UpdatedAt: testTime}))
			},
		},
		{
			name:      "heartbeat",
			heartbeat: 10 * time.Millisecond,
			trigger:   func(hub *broadcast.Hub) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := broadcast.NewHub(8, zap.NewNop(), metrics.New(prometheus.NewRegistry()))
			defer hub.Close()
			handler := NewStatusStreamHandler(hub, tt.heartbeat, zap.NewNop())

			// Only the connection event gets through
			w := &failingStreamWriter{header: make(http.Header), failAfter: 1}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/status-updates", nil)

			done := make(chan struct{})
			go func() {
				defer close(done)
				handler.ServeHTTP(w, req)
			}()

			require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
			tt.trigger(hub)

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("handler kept running after the write failed")
			}
			assert.Equal(t, 0, hub.Len())
			assert.GreaterOrEqual(t, w.writes.Load(), int32(2))
		})
	}
}

func TestStatusStreamHandler_SubscribeAfterClose(t *testing.T) {
	hub, srv := newStreamServer(t, time.Minute)
	hub.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewStatusStreamHandler_DefaultHeartbeat(t *testing.T) {
	h := NewStatusStreamHandler(nil, 0, zap.NewNop())
	assert.Equal(t, DefaultHeartbeatInterval, h.heartbeat)
}
