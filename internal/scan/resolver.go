package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sundayezeilo/scantrack/internal/errx"
)

const (
	MaxShortCodeLength   = 64
	DefaultLookupTimeout = 2 * time.Second
)

var errNoSuchCode = errors.New("no such code")

// Resolver maps a short code to an active code record.
type Resolver struct {
	codes   CodeStore
	timeout time.Duration
}

func NewResolver(codes CodeStore, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{codes: codes, timeout: timeout}
}

// Resolve returns the record for shortCode. It fails with errx.NotFound when
// no record matches, errx.Deactivated when the record is inactive and
// errx.Timeout when the lookup outlives the configured timeout.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (Code, error) {
	const op = "scan.Resolver.Resolve"

	if shortCode == "" || len(shortCode) > MaxShortCodeLength {
		return Code{}, errx.E(op, errx.NotFound, errNoSuchCode)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	code, err := r.codes.FindByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Code{}, errx.E(op, errx.Timeout, err)
		}
		return Code{}, errx.Wrap(op, errx.StorageKind(err), err)
	}

	if !code.Active {
		return Code{}, errx.E(op, errx.Deactivated, fmt.Errorf("code %q is deactivated", shortCode))
	}
	return code, nil
}
