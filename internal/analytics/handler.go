package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/httpx"
)

// Querier is the read API the handler serves.
type Querier interface {
	Dashboard(ctx context.Context, p Period) (Dashboard, error)
	CodeAnalytics(ctx context.Context, codeID uuid.UUID, p Period) (CodeAnalytics, error)
	CodeScans(ctx context.Context, codeID uuid.UUID, req PageRequest) (ScanPage, error)
}

type Handler struct {
	q      Querier
	logger *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Querier Querier
	Logger  *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{q: cfg.Querier, logger: logger}
}

// Dashboard handles GET /analytics/dashboard?period=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	p, err := ParsePeriod(r.URL.Query().Get("period"), DefaultDashboardPeriod)
	if err != nil {
		writeInvalidPeriod(w)
		return
	}

	d, err := h.q.Dashboard(ctx, p)
	if err != nil {
		h.handleQueryError(ctx, logger, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

// Code handles GET /analytics/code/{codeId}?period=.
func (h *Handler) Code(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, ok := httpx.PathUUID(w, r, "codeId")
	if !ok {
		return
	}
	p, err := ParsePeriod(r.URL.Query().Get("period"), DefaultCodePeriod)
	if err != nil {
		writeInvalidPeriod(w)
		return
	}

	a, err := h.q.CodeAnalytics(ctx, id, p)
	if err != nil {
		h.handleQueryError(ctx, logger.With("code_id", id.String()), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

// Scans handles GET /analytics/code/{codeId}/scans?page=&limit=&from=&to=.
func (h *Handler) Scans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, ok := httpx.PathUUID(w, r, "codeId")
	if !ok {
		return
	}
	req, err := parsePageRequest(r)
	if err != nil {
		logger.WarnContext(ctx, "invalid scan list query", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	page, err := h.q.CodeScans(ctx, id, req)
	if err != nil {
		h.handleQueryError(ctx, logger.With("code_id", id.String()), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Handler) handleQueryError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.NotFound:
		logger.WarnContext(ctx, "code not found", logAttrs...)
		httpx.WriteKindError(w, err, "QR code not found")

	case errx.Invalid:
		logger.WarnContext(ctx, "invalid analytics query", logAttrs...)
		httpx.WriteKindError(w, err, "Page is out of range")

	case errx.Timeout:
		logger.ErrorContext(ctx, "analytics query timed out", logAttrs...)
		httpx.WriteKindError(w, err, "Analytics query timed out, please retry")

	default:
		logger.ErrorContext(ctx, "analytics query failed", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorKindToCode(errx.Persistence),
			"Unable to load analytics at this time", nil)
	}
}

func writeInvalidPeriod(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_period",
		fmt.Sprintf("period must be one of %s, %s, %s, %s", Period24h, Period7d, Period30d, Period90d), nil)
}

func parsePageRequest(r *http.Request) (PageRequest, error) {
	var req PageRequest
	var err error

	if req.Page, err = httpx.QueryPositiveInt(r, "page"); err != nil {
		return PageRequest{}, err
	}
	if req.Page > MaxPage {
		return PageRequest{}, fmt.Errorf("page: must be at most %d", MaxPage)
	}
	if req.Limit, err = httpx.QueryPositiveInt(r, "limit"); err != nil {
		return PageRequest{}, err
	}
	if req.From, err = httpx.QueryTime(r, "from", false); err != nil {
		return PageRequest{}, err
	}
	if req.To, err = httpx.QueryTime(r, "to", true); err != nil {
		return PageRequest{}, err
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return PageRequest{}, errors.New("to must not be before from")
	}
	return req, nil
}
