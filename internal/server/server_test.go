package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/broadcast"
	"github.com/sundayezeilo/scantrack/internal/codes"
	"github.com/sundayezeilo/scantrack/internal/config"
	"github.com/sundayezeilo/scantrack/internal/enrich"
	"github.com/sundayezeilo/scantrack/internal/metrics"
	"github.com/sundayezeilo/scantrack/internal/scan"
	"github.com/sundayezeilo/scantrack/internal/store/memstore"
)

func newTestServer(t *testing.T, ready func(context.Context) error) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := broadcast.New(broadcast.Config{})
	t.Cleanup(hub.Close)

	scanner := scan.NewService(scan.ServiceConfig{
		Resolver:  scan.NewResolver(store, 0),
		Enricher:  enrich.New(nil),
		Recorder:  scan.NewRecorder(store, nil),
		Publisher: hub,
		Metrics:   m,
		Logger:    logger,
	})

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Observability: config.ObservabilityConfig{
			ServiceName:    "scantrack-test",
			ServiceVersion: "test",
		},
	}

	s := New(cfg, logger, Handlers{
		Scan: scan.NewHandler(scan.HandlerConfig{Scanner: scanner, Logger: logger}),
		Codes: codes.NewHandler(codes.HandlerConfig{
			Service: codes.NewService(store, &codes.ServiceConfig{Metrics: m}),
			Logger:  logger,
			BaseURL: cfg.Server.BaseURL,
		}),
		Analytics: analytics.NewHandler(analytics.HandlerConfig{
			Querier: analytics.NewEngine(analytics.Config{Store: store}),
			Logger:  logger,
		}),
		Live:    broadcast.NewHandler(broadcast.HandlerConfig{Broadcaster: hub, Logger: logger}),
		Metrics: metrics.Handler(reg),
		Ready:   ready,
	})
	return s.Handler()
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		ready      func(context.Context) error
		wantStatus int
		wantBody   string
	}{
		{"no probe", nil, http.StatusOK, "ok"},
		{"store reachable", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"store down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.ready)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x/health", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body["status"])
			assert.Equal(t, "scantrack-test", body["service"])
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}
}

func TestScanFlowThroughRoutes(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/codes",
		strings.NewReader(`{"url":"https://example.com/menu","title":"Menu"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created codes.CodeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scan/"+created.ShortCode, nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/menu", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/analytics/code/"+created.ID+"?period=24h", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var ca analytics.CodeAnalytics
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ca))
	assert.EqualValues(t, 1, ca.TotalScans)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/codes?search=MENU", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list codes.CodeListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list.Codes, 1)
	assert.Equal(t, created.ID, list.Codes[0].ID)
	assert.EqualValues(t, 1, list.Codes[0].ScanCount)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/codes/short/"+created.ShortCode, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "scantrack_codes_created_total")
}

func TestOversizedScanPage(t *testing.T) {
	h := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/codes",
		strings.NewReader(`{"url":"https://example.com/menu"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created codes.CodeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scan/"+created.ShortCode, nil))
	require.Equal(t, http.StatusFound, rr.Code)

	for _, q := range []string{
		"page=4611686018427387904&limit=100",
		"page=4611686018427387904&limit=1",
		"page=9223372036854775807",
	} {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/analytics/code/"+created.ID+"/scans?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/codes?page=4611686018427387904", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownRoutes(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/scan/abcd1234", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/codes/abc", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rr.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/scan/abcd1234":            "/scan",
		"/analytics/code/123/scans": "/analytics",
		"/api/codes":                "/api",
		"/live":                     "/live",
		"/":                         "/",
	}
	for path, want := range tests {
		assert.Equal(t, want, routeGroup(path), path)
	}
}
