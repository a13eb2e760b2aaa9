package httpx

import (
	"net/http"

	"github.com/sundayezeilo/scantrack/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Deactivated:
		return http.StatusForbidden
	case errx.Unavailable:
		return http.StatusServiceUnavailable
	case errx.Timeout:
		return http.StatusGatewayTimeout
	case errx.Persistence, errx.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to the stable error codes used in JSON
// error envelopes.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Conflict:
		return "conflict"
	case errx.Invalid:
		return "invalid_input"
	case errx.Deactivated:
		return "deactivated"
	case errx.Unavailable:
		return "unavailable"
	case errx.Timeout:
		return "timeout"
	case errx.Persistence:
		return "persistence_failure"
	default:
		return "internal_error"
	}
}

// WriteKindError writes the JSON error envelope for err's kind with the
// given user-facing message.
func WriteKindError(w http.ResponseWriter, err error, message string) {
	kind := errx.KindOf(err)
	var details any
	if kind.Retryable() {
		details = map[string]bool{"retryable": true}
	}
	WriteError(w, ErrorKindToStatus(kind), ErrorKindToCode(kind), message, details)
}
