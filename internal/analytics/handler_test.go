package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/scantrack/internal/errx"
)

type mockQuerier struct {
	dashboardFunc func(ctx context.Context, p Period) (Dashboard, error)
	codeFunc      func(ctx context.Context, id uuid.UUID, p Period) (CodeAnalytics, error)
	scansFunc     func(ctx context.Context, id uuid.UUID, req PageRequest) (ScanPage, error)
}

func (m *mockQuerier) Dashboard(ctx context.Context, p Period) (Dashboard, error) {
	return m.dashboardFunc(ctx, p)
}

func (m *mockQuerier) CodeAnalytics(ctx context.Context, id uuid.UUID, p Period) (CodeAnalytics, error) {
	return m.codeFunc(ctx, id, p)
}

func (m *mockQuerier) CodeScans(ctx context.Context, id uuid.UUID, req PageRequest) (ScanPage, error) {
	return m.scansFunc(ctx, id, req)
}

func serve(q Querier, method, target string) *httptest.ResponseRecorder {
	h := NewHandler(HandlerConfig{Querier: q})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analytics/dashboard", h.Dashboard)
	mux.HandleFunc("GET /analytics/code/{codeId}", h.Code)
	mux.HandleFunc("GET /analytics/code/{codeId}/scans", h.Scans)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestHandlerDashboard(t *testing.T) {
	t.Run("defaults to 7d", func(t *testing.T) {
		var got Period
		rec := serve(&mockQuerier{
			dashboardFunc: func(ctx context.Context, p Period) (Dashboard, error) {
				got = p
				return Dashboard{Period: p, DeviceStats: []Breakdown{{Key: "mobile", Count: 2}}}, nil
			},
		}, http.MethodGet, "/analytics/dashboard")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got != Period7d {
			t.Errorf("period = %q, want %q", got, Period7d)
		}
	})

	t.Run("400 on unsupported period", func(t *testing.T) {
		called := false
		rec := serve(&mockQuerier{
			dashboardFunc: func(ctx context.Context, p Period) (Dashboard, error) {
				called = true
				return Dashboard{}, nil
			},
		}, http.MethodGet, "/analytics/dashboard?period=1y")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if code := errorCode(t, rec); code != "invalid_period" {
			t.Errorf("error = %q, want %q", code, "invalid_period")
		}
		if called {
			t.Error("querier should not be called for an invalid period")
		}
	})

	t.Run("504 on timeout", func(t *testing.T) {
		rec := serve(&mockQuerier{
			dashboardFunc: func(ctx context.Context, p Period) (Dashboard, error) {
				return Dashboard{}, errx.E("analytics.Engine.Dashboard", errx.Timeout, context.DeadlineExceeded)
			},
		}, http.MethodGet, "/analytics/dashboard?period=24h")

		if rec.Code != http.StatusGatewayTimeout {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
		}
	})

	t.Run("500 on storage failure", func(t *testing.T) {
		rec := serve(&mockQuerier{
			dashboardFunc: func(ctx context.Context, p Period) (Dashboard, error) {
				return Dashboard{}, errx.E("analytics.Engine.Dashboard", errx.Persistence, errors.New("relation missing"))
			},
		}, http.MethodGet, "/analytics/dashboard")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
		if code := errorCode(t, rec); code != "persistence_failure" {
			t.Errorf("error = %q, want %q", code, "persistence_failure")
		}
	})
}

func TestHandlerCode(t *testing.T) {
	id := uuid.New()

	t.Run("defaults to 30d", func(t *testing.T) {
		var got Period
		rec := serve(&mockQuerier{
			codeFunc: func(ctx context.Context, gotID uuid.UUID, p Period) (CodeAnalytics, error) {
				got = p
				return CodeAnalytics{Period: p}, nil
			},
		}, http.MethodGet, "/analytics/code/"+id.String())

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got != Period30d {
			t.Errorf("period = %q, want %q", got, Period30d)
		}
	})

	t.Run("400 on malformed id", func(t *testing.T) {
		rec := serve(&mockQuerier{}, http.MethodGet, "/analytics/code/abcd1234")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if code := errorCode(t, rec); code != "invalid_code_id" {
			t.Errorf("error = %q, want %q", code, "invalid_code_id")
		}
	})

	t.Run("404 for unknown code", func(t *testing.T) {
		rec := serve(&mockQuerier{
			codeFunc: func(ctx context.Context, gotID uuid.UUID, p Period) (CodeAnalytics, error) {
				return CodeAnalytics{}, errx.E("analytics.Engine.CodeAnalytics", errx.NotFound, errors.New("no rows"))
			},
		}, http.MethodGet, "/analytics/code/"+id.String()+"?period=90d")

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestHandlerScans(t *testing.T) {
	id := uuid.New()

	t.Run("passes paging and range", func(t *testing.T) {
		var got PageRequest
		rec := serve(&mockQuerier{
			scansFunc: func(ctx context.Context, gotID uuid.UUID, req PageRequest) (ScanPage, error) {
				got = req
				return ScanPage{Scans: []ScanView{}, Page: req.Page, Limit: req.Limit}, nil
			},
		}, http.MethodGet, "/analytics/code/"+id.String()+"/scans?page=3&limit=20&from=2026-03-01&to=2026-03-02")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got.Page != 3 || got.Limit != 20 {
			t.Errorf("page/limit = %d/%d, want 3/20", got.Page, got.Limit)
		}
		wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		if !got.From.Equal(wantFrom) {
			t.Errorf("from = %v, want %v", got.From, wantFrom)
		}
		wantTo := time.Date(2026, 3, 2, 23, 59, 59, 999999000, time.UTC)
		if !got.To.Equal(wantTo) {
			t.Errorf("to = %v, want %v", got.To, wantTo)
		}
	})

	t.Run("400 when the engine rejects the page", func(t *testing.T) {
		rec := serve(&mockQuerier{
			scansFunc: func(ctx context.Context, gotID uuid.UUID, req PageRequest) (ScanPage, error) {
				return ScanPage{}, errx.E("test", errx.Invalid, errors.New("page out of range"))
			},
		}, http.MethodGet, "/analytics/code/"+id.String()+"/scans?page=2")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := errorCode(t, rec); got != "invalid_input" {
			t.Errorf("error = %q, want invalid_input", got)
		}
	})

	oversized := []string{
		"page=4611686018427387904&limit=100",
		"page=" + strconv.Itoa(MaxPage+1),
		"page=99999999999999999999",
	}
	for _, q := range append(oversized, "page=0", "limit=abc", "from=yesterday", "from=2026-03-05&to=2026-03-01") {
		t.Run("400 on "+q, func(t *testing.T) {
			rec := serve(&mockQuerier{}, http.MethodGet, "/analytics/code/"+id.String()+"/scans?"+q)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
