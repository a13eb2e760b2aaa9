package analytics

import (
	"fmt"
	"time"

	"github.com/sundayezeilo/scantrack/internal/errx"
)

// Period selects the trailing window an aggregation covers.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"

	DefaultDashboardPeriod = Period7d
	DefaultCodePeriod      = Period30d
)

// ParsePeriod validates s, returning def when s is empty.
func ParsePeriod(s string, def Period) (Period, error) {
	const op = "analytics.ParsePeriod"

	if s == "" {
		return def, nil
	}
	p := Period(s)
	if p.Duration() == 0 {
		return "", errx.E(op, errx.Invalid, fmt.Errorf("unsupported period %q", s))
	}
	return p, nil
}

// Duration returns the window length, or zero for an unsupported period.
func (p Period) Duration() time.Duration {
	switch p {
	case Period24h:
		return 24 * time.Hour
	case Period7d:
		return 7 * 24 * time.Hour
	case Period30d:
		return 30 * 24 * time.Hour
	case Period90d:
		return 90 * 24 * time.Hour
	default:
		return 0
	}
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowAt returns [now - p, now].
func (p Period) WindowAt(now time.Time) Window {
	return Window{Start: now.Add(-p.Duration()), End: now}
}
