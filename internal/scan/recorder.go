package scan

import (
	"context"
	"time"

	"github.com/sundayezeilo/scantrack/internal/enrich"
	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/idgen"
)

const DefaultWriteTimeout = 5 * time.Second

// Recorder persists scan events. It is the only writer of a code's counter.
type Recorder struct {
	events  EventStore
	ids     idgen.Generator
	now     func() time.Time
	timeout time.Duration
}

// RecorderConfig holds configuration for the recorder.
type RecorderConfig struct {
	IDGenerator  idgen.Generator
	Clock        func() time.Time
	WriteTimeout time.Duration
}

func NewRecorder(events EventStore, config *RecorderConfig) *Recorder {
	if config == nil {
		config = &RecorderConfig{}
	}

	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(idgen.WithRetries(1))
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := config.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	return &Recorder{
		events:  events,
		ids:     ids,
		now:     clock,
		timeout: timeout,
	}
}

// Record appends a scan of code and returns the stored event together with
// the counter value after the increment.
//
// The write is detached from ctx cancellation and bounded only by the write
// timeout: once started it either commits or fails on its own terms.
func (r *Recorder) Record(ctx context.Context, code Code, enr enrich.Enrichment, userAgent string) (Event, int64, error) {
	const op = "scan.Recorder.Record"

	id, err := r.ids.Generate()
	if err != nil {
		return Event{}, 0, errx.E(op, errx.Internal, err)
	}

	ev := Event{
		ID:          id,
		CodeID:      code.ID,
		ShortCode:   code.ShortCode,
		OccurredAt:  r.now().UTC().Truncate(time.Microsecond),
		DeviceClass: enr.DeviceClass,
		Browser:     enr.Browser,
		OS:          enr.OS,
		IPAddress:   enr.IPAddress,
		Country:     enr.Country,
		City:        enr.City,
		UserAgent:   userAgent,
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	counter, err := r.events.AppendScan(wctx, ev)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return Event{}, 0, errx.E(op, errx.NotFound, err)
		}
		return Event{}, 0, errx.E(op, errx.Persistence, err)
	}
	return ev, counter, nil
}
