package scan

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sundayezeilo/scantrack/internal/enrich"
	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/httpx"
)

// Handler serves the scan redirect endpoint.
type Handler struct {
	scanner Scanner
	logger  *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Scanner Scanner
	Logger  *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{scanner: cfg.Scanner, logger: logger}
}

// Scan handles GET /scan/{shortCode}: records the scan and redirects to the
// code's destination. Errors are answered in plain text since the caller is
// usually a phone browser.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shortCode := r.PathValue("shortCode")

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	res, err := h.scanner.Scan(ctx, Request{
		ShortCode:     shortCode,
		UserAgent:     r.UserAgent(),
		SourceAddress: enrich.ClientAddress(r),
	})
	if err != nil {
		h.handleScanError(ctx, logger, w, err, shortCode)
		return
	}

	logger.InfoContext(ctx, "scan recorded",
		"short_code", shortCode,
		"code_id", res.Code.ID.String(),
		"counter", res.Counter,
		"device_class", res.Event.DeviceClass,
		"country", res.Event.Country,
	)

	httpx.RedirectNoStore(w, r, res.Code.DestinationURL)
}

func (h *Handler) handleScanError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, shortCode string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"short_code", shortCode,
	}

	switch kind {
	case errx.NotFound:
		logger.WarnContext(ctx, "code not found", logAttrs...)
		httpx.WriteText(w, http.StatusNotFound, "QR code not found")

	case errx.Deactivated:
		logger.WarnContext(ctx, "code deactivated", logAttrs...)
		httpx.WriteText(w, http.StatusForbidden, "QR code is deactivated")

	case errx.Timeout:
		logger.ErrorContext(ctx, "scan timed out", logAttrs...)
		w.Header().Set("Retry-After", "1")
		httpx.WriteText(w, http.StatusGatewayTimeout, "Scan timed out, please try again")

	default:
		logger.ErrorContext(ctx, "scan failed", logAttrs...)
		httpx.WriteText(w, http.StatusInternalServerError, "Error processing scan")
	}
}
