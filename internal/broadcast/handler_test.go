package broadcast

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveServer(t *testing.T, cfg HandlerConfig) (*httptest.Server, string) {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewHandler(cfg))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandler_StreamsScanUpdates(t *testing.T) {
	b := New(Config{})
	_, url := newLiveServer(t, HandlerConfig{Broadcaster: b})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.Publish(update(7))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type string `json:"type"`
		Data struct {
			CodeID       string `json:"code_id"`
			ShortCode    string `json:"short_code"`
			CounterValue int64  `json:"counter_value"`
			ScanSummary  struct {
				Timestamp   time.Time `json:"timestamp"`
				DeviceClass string    `json:"device_class"`
				Country     string    `json:"country"`
				City        string    `json:"city"`
			} `json:"scan_summary"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, TypeScanUpdate, got.Type)
	assert.Equal(t, "abcd1234", got.Data.ShortCode)
	assert.Equal(t, int64(7), got.Data.CounterValue)
	assert.Equal(t, "mobile", got.Data.ScanSummary.DeviceClass)
	assert.Equal(t, "Lagos", got.Data.ScanSummary.City)
	assert.True(t, got.Data.ScanSummary.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestHandler_UnsubscribesOnDisconnect(t *testing.T) {
	b := New(Config{})
	_, url := newLiveServer(t, HandlerConfig{Broadcaster: b})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ClosesOnShutdown(t *testing.T) {
	b := New(Config{})
	_, url := newLiveServer(t, HandlerConfig{Broadcaster: b})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHandler_RejectsUnlistedOrigin(t *testing.T) {
	b := New(Config{})
	_, url := newLiveServer(t, HandlerConfig{
		Broadcaster:    b,
		AllowedOrigins: []string{"https://dash.example.com"},
	})

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://dash.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHandler_PlainRequestIsRejected(t *testing.T) {
	b := New(Config{})
	srv, _ := newLiveServer(t, HandlerConfig{Broadcaster: b})

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, b.SubscriberCount())
}
