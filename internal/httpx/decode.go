package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxRequestBodySize caps JSON request bodies. Code records are small.
const MaxRequestBodySize = 64 << 10

// DecodeJSON decodes a single JSON object from the request body, rejecting
// unknown fields, trailing data and bodies over MaxRequestBodySize.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var zero T

	body := http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
	defer func() {
		_ = body.Close()
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var v T
	if err := dec.Decode(&v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxErr):
			return zero, fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return zero, fmt.Errorf("invalid value for field %q", typeErr.Field)
		case errors.As(err, &maxBytesErr):
			return zero, fmt.Errorf("request body too large (max %d bytes)", MaxRequestBodySize)
		case errors.Is(err, io.EOF):
			return zero, errors.New("request body is empty")
		default:
			return zero, fmt.Errorf("failed to decode JSON: %w", err)
		}
	}

	if dec.More() {
		return zero, errors.New("request body contains multiple JSON objects")
	}
	return v, nil
}

// PathUUID parses the named path wildcard as a UUID. On failure it writes a
// 400 invalid_code_id response and reports false.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_code_id", "code id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// QueryPositiveInt returns the named query parameter as an integer >= 1, or
// 0 when it is absent.
func QueryPositiveInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: must be a positive integer", name)
	}
	return n, nil
}

// QueryTime returns the named query parameter as an RFC 3339 timestamp or a
// YYYY-MM-DD date, or the zero time when it is absent. With endOfDay set a
// bare date covers the whole day.
func QueryTime(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Microsecond)
	}
	return d, nil
}
