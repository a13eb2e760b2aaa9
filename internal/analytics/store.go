package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/scantrack/internal/scan"
)

// Dimension is an attribute scans can be grouped by.
type Dimension int

const (
	// ByDevice groups by device class, unknown included.
	ByDevice Dimension = iota
	// ByBrowser groups by browser, unknown excluded.
	ByBrowser
	// ByCountry groups by country, unknown excluded.
	ByCountry
	// ByLocation groups by (country, city), unknown country excluded.
	ByLocation
	// ByDay groups by calendar date in the filter's time zone.
	ByDay
	// ByHour groups by hour of day in the filter's time zone.
	ByHour
)

func (d Dimension) String() string {
	switch d {
	case ByDevice:
		return "device"
	case ByBrowser:
		return "browser"
	case ByCountry:
		return "country"
	case ByLocation:
		return "location"
	case ByDay:
		return "day"
	case ByHour:
		return "hour"
	default:
		return "unknown"
	}
}

// Filter narrows a scan query. Zero Since or Until leave that side of the
// window open; both bounds are inclusive.
type Filter struct {
	CodeID   uuid.NullUUID
	Since    time.Time
	Until    time.Time
	Limit    int            // zero means no limit
	Location *time.Location // reference zone for ByDay and ByHour, UTC when nil
}

// Bucket is one group of a CountBy result. ByLocation fills SubKey with the
// city; ByDay keys are YYYY-MM-DD and ByHour keys are "0" through "23".
type Bucket struct {
	Key    string
	SubKey string
	Count  int64
}

// RecentScan is an event joined with its code's title. CodeExists is false
// when the owning record has since been deleted.
type RecentScan struct {
	Event      scan.Event
	CodeTitle  string
	CodeExists bool
}

type CodeTotals struct {
	Total  int64
	Active int64
}

// Store answers the read queries aggregation is built from.
//
// CountBy returns breakdown buckets ordered by count descending then key
// ascending, and ByDay/ByHour buckets in ascending key order. Only non-empty
// buckets are returned.
type Store interface {
	FindCode(ctx context.Context, id uuid.UUID) (scan.Code, error)
	CountCodes(ctx context.Context) (CodeTotals, error)
	CountScans(ctx context.Context, f Filter) (int64, error)
	TopCodes(ctx context.Context, limit int) ([]scan.Code, error)
	RecentScans(ctx context.Context, limit int) ([]RecentScan, error)
	CountBy(ctx context.Context, dim Dimension, f Filter) ([]Bucket, error)
	// ListScans returns a code's events newest first. f.Limit is the page size.
	ListScans(ctx context.Context, codeID uuid.UUID, f Filter, offset int) ([]scan.Event, error)
}
