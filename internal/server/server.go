package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/codes"
	"github.com/sundayezeilo/scantrack/internal/config"
	"github.com/sundayezeilo/scantrack/internal/httpx"
	"github.com/sundayezeilo/scantrack/internal/scan"
)

const healthCheckTimeout = 2 * time.Second

// Handlers groups the HTTP surfaces the server routes to.
type Handlers struct {
	Scan      *scan.Handler
	Codes     *codes.Handler
	Analytics *analytics.Handler
	Live      http.Handler
	Metrics   http.Handler

	// Ready reports whether storage is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handlers Handlers
	server   *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handlers Handlers) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
	}
}

// Handler returns the routed, instrumented handler chain.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until ctx is cancelled or a
// shutdown signal arrives.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

	case <-ctx.Done():
		s.logger.Info("context cancelled, stopping server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if closeErr := s.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close server: %w", closeErr)
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	h := s.handlers

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	mux.HandleFunc("GET /scan/{shortCode}", h.Scan.Scan)

	mux.HandleFunc("POST /api/codes", h.Codes.Create)
	mux.HandleFunc("GET /api/codes", h.Codes.List)
	mux.HandleFunc("GET /api/codes/short/{shortCode}", h.Codes.GetByShortCode)
	mux.HandleFunc("GET /api/codes/{codeId}", h.Codes.Get)
	mux.HandleFunc("PATCH /api/codes/{codeId}", h.Codes.Update)
	mux.HandleFunc("DELETE /api/codes/{codeId}", h.Codes.Delete)

	mux.HandleFunc("GET /analytics/dashboard", h.Analytics.Dashboard)
	mux.HandleFunc("GET /analytics/code/{codeId}", h.Analytics.Code)
	mux.HandleFunc("GET /analytics/code/{codeId}/scans", h.Analytics.Scans)

	if h.Live != nil {
		mux.Handle("GET /live", h.Live)
	}

	return mux
}

// applyMiddleware wraps the routed handler in the middleware chain, with
// tracing outermost.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	chained := httpx.Chain(
		httpx.Recovery(s.logger),
		httpx.RequestID,
		httpx.Logger(s.logger, "/x/health", "/metrics"),
		httpx.CORS(s.config.Broadcast.AllowedOrigins),
	)(handler)

	return otelhttp.NewHandler(chained, s.config.Observability.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeGroup(r.URL.Path)
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/x/health" && r.URL.Path != "/metrics"
		}),
	)
}

// routeGroup keeps span names low-cardinality: "/scan/abcd1234" becomes "/scan".
func routeGroup(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK

	if s.handlers.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.handlers.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", "error", err.Error())
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	httpx.WriteJSON(w, code, map[string]string{
		"status":  status,
		"service": s.config.Observability.ServiceName,
		"version": s.config.Observability.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
