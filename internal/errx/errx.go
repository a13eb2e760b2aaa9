// Package errx classifies application errors by Kind.
// The scan pipeline distinguishes a deactivated code (known, but refused) from a
// missing one, and storage failures from storage timeouts; callers branch on
// the Kind rather than on the wrapped error.
package errx

import (
	"context"
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	NotFound
	Conflict
	Invalid
	Unavailable
	Internal
	Deactivated
	Persistence
	Timeout
)

type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}

	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case Invalid:
		return "Invalid"
	case Unavailable:
		return "Unavailable"
	case Internal:
		return "Internal"
	case Deactivated:
		return "Deactivated"
	case Persistence:
		return "Persistence"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Retryable reports whether a caller may reasonably retry an operation that
// failed with this kind.
func (k Kind) Retryable() bool {
	return k == Timeout || k == Unavailable
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Wrap re-wraps err under op, keeping the kind already attached to it.
// Unclassified errors get fallback instead.
func Wrap(op string, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == Unknown {
		kind = fallback
	}
	return E(op, kind, err)
}

// StorageKind classifies a raw storage error: deadline and cancellation become
// Timeout, anything else Persistence.
func StorageKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout
	}
	return Persistence
}
