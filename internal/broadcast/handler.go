package broadcast

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sundayezeilo/scantrack/internal/httpx"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second

	maxInboundMessage = 512
)

// HandlerConfig holds configuration for the live WebSocket handler.
type HandlerConfig struct {
	Broadcaster    *Broadcaster
	Logger         *slog.Logger
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	AllowedOrigins []string // empty allows every origin
}

// Handler upgrades requests to WebSocket connections that stream scan
// updates until either side goes away.
type Handler struct {
	b            *Broadcaster
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	return &Handler{
		b:            cfg.Broadcaster,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	sub := h.b.Subscribe()
	defer h.b.Unsubscribe(sub)

	logger = logger.With("subscriber_id", sub.ID)
	logger.InfoContext(ctx, "live subscriber connected")

	gone := make(chan struct{})
	go h.readLoop(conn, gone)

	h.writeLoop(conn, sub, gone)

	logger.InfoContext(ctx, "live subscriber disconnected", "dropped", sub.Dropped())
}

// readLoop discards inbound frames and answers pongs. It closes gone once the
// peer disconnects or stops answering pings.
func (h *Handler) readLoop(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxInboundMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live subscriber read error", "error", err.Error())
			}
			return
		}
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, sub *Subscriber, gone <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			deadline := time.Now().Add(h.writeTimeout)
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
				return
			}
			_ = conn.SetWriteDeadline(deadline)
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}

		case <-gone:
			return
		}
	}
}
