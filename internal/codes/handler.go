package codes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/httpx"
	"github.com/sundayezeilo/scantrack/internal/scan"
)

// HTTPCreateCodeRequest represents the JSON request body for creating a code.
type HTTPCreateCodeRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// HTTPUpdateCodeRequest represents the JSON request body for PATCH. Omitted
// fields are left unchanged.
type HTTPUpdateCodeRequest struct {
	URL         *string `json:"url"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// CodeResponse represents a code record in JSON responses.
type CodeResponse struct {
	ID             string `json:"id"`
	ShortCode      string `json:"short_code"`
	DestinationURL string `json:"destination_url"`
	ScanURL        string `json:"scan_url"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Active         bool   `json:"active"`
	ScanCount      int64  `json:"scan_count"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CodeListResponse is one page of code records.
type CodeListResponse struct {
	Codes      []CodeResponse `json:"codes"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Handler provides HTTP handlers for code records.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // base URL printed into QR images (e.g., "https://qr.example.com")
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Create handles POST /api/codes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateCodeRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	if req.URL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "url is required", nil)
		return
	}

	code, err := h.service.Create(ctx, CreateRequest{
		DestinationURL: req.URL,
		Title:          req.Title,
		Description:    req.Description,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to create QR code at this time. Please try again.")
		return
	}

	logger.InfoContext(ctx, "code created",
		"code_id", code.ID.String(),
		"short_code", code.ShortCode,
	)
	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(code))
}

// Get handles GET /api/codes/{codeId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, ok := httpx.PathUUID(w, r, "codeId")
	if !ok {
		return
	}

	code, err := h.service.Get(ctx, id)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load QR code at this time")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(code))
}

// GetByShortCode handles GET /api/codes/short/{shortCode}.
func (h *Handler) GetByShortCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code, err := h.service.GetByShortCode(ctx, r.PathValue("shortCode"))
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load QR code at this time")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(code))
}

// List handles GET /api/codes?search=&sort=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	page, err := httpx.QueryPositiveInt(r, "page")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	limit, err := httpx.QueryPositiveInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	q := r.URL.Query()
	result, err := h.service.List(ctx, ListRequest{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to list QR codes at this time")
		return
	}

	resp := CodeListResponse{
		Codes: make([]CodeResponse, 0, len(result.Codes)),
		Page:  result.Page,
		Limit: result.Limit,
		Total: result.Total,
	}
	if result.Limit > 0 {
		resp.TotalPages = int((result.Total + int64(result.Limit) - 1) / int64(result.Limit))
	}
	for _, c := range result.Codes {
		resp.Codes = append(resp.Codes, h.toResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /api/codes/{codeId}. The scan counter and short code
// are not editable.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, ok := httpx.PathUUID(w, r, "codeId")
	if !ok {
		return
	}

	req, err := httpx.DecodeJSON[HTTPUpdateCodeRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	code, err := h.service.Update(ctx, id, Changes{
		DestinationURL: req.URL,
		Title:          req.Title,
		Description:    req.Description,
		Active:         req.Active,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to update QR code at this time")
		return
	}

	logger.InfoContext(ctx, "code updated", "code_id", id.String(), "active", code.Active)
	httpx.WriteJSON(w, http.StatusOK, h.toResponse(code))
}

// Delete handles DELETE /api/codes/{codeId}. Recorded scans are kept.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	id, ok := httpx.PathUUID(w, r, "codeId")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.handleError(ctx, logger, w, err, "Unable to delete QR code at this time")
		return
	}

	logger.InfoContext(ctx, "code deleted", "code_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, fallback string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.NotFound:
		logger.WarnContext(ctx, "code not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "QR code not found", nil)

	case errx.Invalid:
		logger.WarnContext(ctx, "invalid code request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", unwrapMessage(err), nil)

	case errx.Unavailable, errx.Timeout:
		logger.ErrorContext(ctx, "code store unavailable", logAttrs...)
		httpx.WriteKindError(w, err, fallback)

	default:
		logger.ErrorContext(ctx, "unexpected code store error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func (h *Handler) toResponse(c scan.Code) CodeResponse {
	return CodeResponse{
		ID:             c.ID.String(),
		ShortCode:      c.ShortCode,
		DestinationURL: c.DestinationURL,
		ScanURL:        h.baseURL + "/scan/" + c.ShortCode,
		Title:          c.Title,
		Description:    c.Description,
		Active:         c.Active,
		ScanCount:      c.ScanCount,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
}

// unwrapMessage returns the innermost error message, without op prefixes.
func unwrapMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
