package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sundayezeilo/scantrack/internal/errx"
)

type mockScanner struct {
	scanFunc func(ctx context.Context, req Request) (Result, error)
	last     Request
}

func (m *mockScanner) Scan(ctx context.Context, req Request) (Result, error) {
	m.last = req
	return m.scanFunc(ctx, req)
}

func newTestMux(s Scanner) *http.ServeMux {
	h := NewHandler(HandlerConfig{
		Scanner: s,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scan/{shortCode}", h.Scan)
	return mux
}

func TestHandler_ScanRedirects(t *testing.T) {
	scanner := &mockScanner{scanFunc: func(ctx context.Context, req Request) (Result, error) {
		return Result{Code: activeCode(), Counter: 5}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/scan/abcd1234", nil)
	req.Header.Set("User-Agent", "phone")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := httptest.NewRecorder()

	newTestMux(scanner).ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "https://example.com/menu" {
		t.Errorf("Location = %q", got)
	}
	want := Request{ShortCode: "abcd1234", UserAgent: "phone", SourceAddress: "203.0.113.7"}
	if scanner.last != want {
		t.Errorf("request = %+v, want %+v", scanner.last, want)
	}
}

func TestHandler_ScanErrors(t *testing.T) {
	tests := []struct {
		name       string
		kind       errx.Kind
		wantStatus int
		wantBody   string
	}{
		{"not found", errx.NotFound, http.StatusNotFound, "QR code not found"},
		{"deactivated", errx.Deactivated, http.StatusForbidden, "QR code is deactivated"},
		{"persistence", errx.Persistence, http.StatusInternalServerError, "Error processing scan"},
		{"timeout", errx.Timeout, http.StatusGatewayTimeout, "Scan timed out"},
		{"unclassified", errx.Unknown, http.StatusInternalServerError, "Error processing scan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockScanner{scanFunc: func(ctx context.Context, req Request) (Result, error) {
				return Result{}, errx.E("scan.Service.Scan", tt.kind, errors.New("boom"))
			}}

			rr := httptest.NewRecorder()
			newTestMux(scanner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/scan/abcd1234", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}
