package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Code is a scannable code record.
type Code struct {
	ID             uuid.UUID
	ShortCode      string
	DestinationURL string
	Title          string
	Description    string
	Active         bool
	ScanCount      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Event is one recorded scan. Events are immutable once stored.
type Event struct {
	ID          uuid.UUID
	CodeID      uuid.UUID
	ShortCode   string
	OccurredAt  time.Time
	DeviceClass string
	Browser     string
	OS          string
	IPAddress   string
	Country     string
	City        string
	UserAgent   string
}

// CodeStore looks up code records by short code.
type CodeStore interface {
	FindByShortCode(ctx context.Context, shortCode string) (Code, error)
}

// EventStore persists scan events.
//
// AppendScan stores ev and increments the owning code's counter as one atomic
// operation, returning the counter value after the increment. If the code no
// longer exists nothing is written and an errx.NotFound error is returned.
type EventStore interface {
	AppendScan(ctx context.Context, ev Event) (int64, error)
}
