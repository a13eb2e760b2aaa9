// Package pgstore implements the code, scan and aggregation stores on
// PostgreSQL through the sqlc-generated queries.
package pgstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/codes"
	db "github.com/sundayezeilo/scantrack/internal/db/sqlc"
	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/idgen"
	"github.com/sundayezeilo/scantrack/internal/scan"
)

var (
	_ scan.CodeStore   = (*Store)(nil)
	_ scan.EventStore  = (*Store)(nil)
	_ codes.Repository = (*Store)(nil)
	_ analytics.Store  = (*Store)(nil)
)

type Store struct {
	q   db.Querier
	ids idgen.Generator
}

// Config holds configuration for the store.
type Config struct {
	IDGenerator idgen.Generator
}

func New(q db.Querier, config *Config) *Store {
	if config == nil {
		config = &Config{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &Store{q: q, ids: config.IDGenerator}
}

func (s *Store) Create(ctx context.Context, code scan.Code) (scan.Code, error) {
	const op = "pgstore.Create"

	if code.ID == uuid.Nil {
		id, err := s.ids.Generate()
		if err != nil {
			return scan.Code{}, errx.E(op, errx.Unavailable, err)
		}
		code.ID = id
	}

	row, err := s.q.CreateCode(ctx, db.CreateCodeParams{
		ID:             code.ID,
		ShortCode:      code.ShortCode,
		DestinationUrl: code.DestinationURL,
		Title:          code.Title,
		Description:    code.Description,
	})
	if err != nil {
		return scan.Code{}, mapError(op, err)
	}
	return toCode(op, row)
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	const op = "pgstore.FindByID"

	row, err := s.q.GetCodeByID(ctx, id)
	if err != nil {
		return scan.Code{}, mapError(op, err)
	}
	return toCode(op, row)
}

func (s *Store) FindCode(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	return s.FindByID(ctx, id)
}

func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (scan.Code, error) {
	const op = "pgstore.FindByShortCode"

	row, err := s.q.GetCodeByShortCode(ctx, shortCode)
	if err != nil {
		return scan.Code{}, mapError(op, err)
	}
	return toCode(op, row)
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, c codes.Changes) (scan.Code, error) {
	const op = "pgstore.Update"

	row, err := s.q.UpdateCode(ctx, db.UpdateCodeParams{
		ID:             id,
		DestinationUrl: optionalText(c.DestinationURL),
		Title:          optionalText(c.Title),
		Description:    optionalText(c.Description),
		IsActive:       optionalBool(c.Active),
	})
	if err != nil {
		return scan.Code{}, mapError(op, err)
	}
	return toCode(op, row)
}

func (s *Store) List(ctx context.Context, q codes.ListQuery) ([]scan.Code, int64, error) {
	const op = "pgstore.List"

	total, err := s.q.CountMatchingCodes(ctx, q.Search)
	if err != nil {
		return nil, 0, mapError(op, err)
	}

	rows, err := s.q.ListCodes(ctx, db.ListCodesParams{
		Search:     q.Search,
		Sort:       q.Sort,
		PageSize:   clampInt32(q.Limit),
		PageOffset: clampInt32(q.Offset),
	})
	if err != nil {
		return nil, 0, mapError(op, err)
	}

	out := make([]scan.Code, 0, len(rows))
	for _, r := range rows {
		c, err := toCode(op, r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, nil
}

// Delete removes a code record. Its scan events are kept.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "pgstore.Delete"

	n, err := s.q.DeleteCode(ctx, id)
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, fmt.Errorf("code %s not found", id))
	}
	return nil
}

// AppendScan stores ev and bumps the code's counter in a single statement.
func (s *Store) AppendScan(ctx context.Context, ev scan.Event) (int64, error) {
	const op = "pgstore.AppendScan"

	row, err := s.q.AppendScan(ctx, db.AppendScanParams{
		CodeID:      ev.CodeID,
		ID:          ev.ID,
		ShortCode:   ev.ShortCode,
		OccurredAt:  timestamptz(ev.OccurredAt),
		DeviceClass: ev.DeviceClass,
		Browser:     ev.Browser,
		Os:          ev.OS,
		IpAddress:   ev.IPAddress,
		Country:     ev.Country,
		City:        ev.City,
		UserAgent:   ev.UserAgent,
	})
	if err != nil {
		return 0, mapError(op, err)
	}
	return row.ScanCount, nil
}

func (s *Store) CountCodes(ctx context.Context) (analytics.CodeTotals, error) {
	const op = "pgstore.CountCodes"

	row, err := s.q.CountCodes(ctx)
	if err != nil {
		return analytics.CodeTotals{}, mapError(op, err)
	}
	return analytics.CodeTotals{Total: row.Total, Active: row.Active}, nil
}

func (s *Store) CountScans(ctx context.Context, f analytics.Filter) (int64, error) {
	const op = "pgstore.CountScans"

	n, err := s.q.CountScans(ctx, db.CountScansParams{
		CodeID: f.CodeID,
		Since:  optionalTimestamptz(f.Since),
		Until:  optionalTimestamptz(f.Until),
	})
	if err != nil {
		return 0, mapError(op, err)
	}
	return n, nil
}

func (s *Store) TopCodes(ctx context.Context, limit int) ([]scan.Code, error) {
	const op = "pgstore.TopCodes"

	rows, err := s.q.ListMostScannedCodes(ctx, clampInt32(limit))
	if err != nil {
		return nil, mapError(op, err)
	}

	out := make([]scan.Code, 0, len(rows))
	for _, r := range rows {
		c, err := toCode(op, r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) RecentScans(ctx context.Context, limit int) ([]analytics.RecentScan, error) {
	const op = "pgstore.RecentScans"

	rows, err := s.q.ListRecentScans(ctx, clampInt32(limit))
	if err != nil {
		return nil, mapError(op, err)
	}

	out := make([]analytics.RecentScan, 0, len(rows))
	for _, r := range rows {
		ev, err := toEvent(op, db.ScanEvent{
			ID:          r.ID,
			CodeID:      r.CodeID,
			ShortCode:   r.ShortCode,
			OccurredAt:  r.OccurredAt,
			DeviceClass: r.DeviceClass,
			Browser:     r.Browser,
			Os:          r.Os,
			IpAddress:   r.IpAddress,
			Country:     r.Country,
			City:        r.City,
			UserAgent:   r.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, analytics.RecentScan{
			Event:      ev,
			CodeTitle:  r.CodeTitle.String,
			CodeExists: r.CodeTitle.Valid,
		})
	}
	return out, nil
}

// CountBy groups scans by dim. An open window side is treated as unbounded.
func (s *Store) CountBy(ctx context.Context, dim analytics.Dimension, f analytics.Filter) ([]analytics.Bucket, error) {
	const op = "pgstore.CountBy"

	since, until := lowerBound(f.Since), upperBound(f.Until)
	maxRows := pgtype.Int4{}
	if f.Limit > 0 {
		maxRows = pgtype.Int4{Int32: clampInt32(f.Limit), Valid: true}
	}
	tz := "UTC"
	if f.Location != nil {
		tz = f.Location.String()
	}

	var (
		out []analytics.Bucket
		err error
	)
	switch dim {
	case analytics.ByDevice:
		var rows []db.CountScansByDeviceRow
		rows, err = s.q.CountScansByDevice(ctx, db.CountScansByDeviceParams{
			CodeID: f.CodeID, Since: since, Until: until, MaxRows: maxRows,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: r.Key, Count: r.Count})
		}

	case analytics.ByBrowser:
		var rows []db.CountScansByBrowserRow
		rows, err = s.q.CountScansByBrowser(ctx, db.CountScansByBrowserParams{
			CodeID: f.CodeID, Since: since, Until: until, MaxRows: maxRows,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: r.Key, Count: r.Count})
		}

	case analytics.ByCountry:
		var rows []db.CountScansByCountryRow
		rows, err = s.q.CountScansByCountry(ctx, db.CountScansByCountryParams{
			CodeID: f.CodeID, Since: since, Until: until, MaxRows: maxRows,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: r.Key, Count: r.Count})
		}

	case analytics.ByLocation:
		var rows []db.CountScansByLocationRow
		rows, err = s.q.CountScansByLocation(ctx, db.CountScansByLocationParams{
			CodeID: f.CodeID, Since: since, Until: until, MaxRows: maxRows,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: r.Key, SubKey: r.SubKey, Count: r.Count})
		}

	case analytics.ByDay:
		var rows []db.CountScansByDayRow
		rows, err = s.q.CountScansByDay(ctx, db.CountScansByDayParams{
			Tz: tz, CodeID: f.CodeID, Since: since, Until: until,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: r.Key, Count: r.Count})
		}

	case analytics.ByHour:
		var rows []db.CountScansByHourRow
		rows, err = s.q.CountScansByHour(ctx, db.CountScansByHourParams{
			Tz: tz, CodeID: f.CodeID, Since: since, Until: until,
		})
		for _, r := range rows {
			out = append(out, analytics.Bucket{Key: strconv.Itoa(int(r.Hour)), Count: r.Count})
		}

	default:
		return nil, errx.E(op, errx.Invalid, fmt.Errorf("unsupported dimension %v", dim))
	}

	if err != nil {
		return nil, mapError(op+"."+dim.String(), err)
	}
	if out == nil {
		out = []analytics.Bucket{}
	}
	return out, nil
}

func (s *Store) ListScans(ctx context.Context, codeID uuid.UUID, f analytics.Filter, offset int) ([]scan.Event, error) {
	const op = "pgstore.ListScans"

	rows, err := s.q.ListScansForCode(ctx, db.ListScansForCodeParams{
		CodeID:     codeID,
		Since:      optionalTimestamptz(f.Since),
		Until:      optionalTimestamptz(f.Until),
		PageSize:   clampInt32(f.Limit),
		PageOffset: clampInt32(offset),
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	out := make([]scan.Event, 0, len(rows))
	for _, r := range rows {
		ev, err := toEvent(op, r)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid || ts.InfinityModifier != pgtype.Finite {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time.UTC(), nil
}

func toCode(op string, x db.QrCode) (scan.Code, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return scan.Code{}, errx.E(op, errx.Internal, err)
	}
	updatedAt, err := mustTime(x.UpdatedAt, "updated_at")
	if err != nil {
		return scan.Code{}, errx.E(op, errx.Internal, err)
	}

	return scan.Code{
		ID:             x.ID,
		ShortCode:      x.ShortCode,
		DestinationURL: x.DestinationUrl,
		Title:          x.Title,
		Description:    x.Description,
		Active:         x.IsActive,
		ScanCount:      x.ScanCount,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func toEvent(op string, x db.ScanEvent) (scan.Event, error) {
	occurredAt, err := mustTime(x.OccurredAt, "occurred_at")
	if err != nil {
		return scan.Event{}, errx.E(op, errx.Internal, err)
	}

	return scan.Event{
		ID:          x.ID,
		CodeID:      x.CodeID,
		ShortCode:   x.ShortCode,
		OccurredAt:  occurredAt,
		DeviceClass: x.DeviceClass,
		Browser:     x.Browser,
		OS:          x.Os,
		IPAddress:   x.IpAddress,
		Country:     x.Country,
		City:        x.City,
		UserAgent:   x.UserAgent,
	}, nil
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// optionalTimestamptz maps the zero time to NULL.
func optionalTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return timestamptz(t)
}

func lowerBound(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{InfinityModifier: pgtype.NegativeInfinity, Valid: true}
	}
	return timestamptz(t)
}

func upperBound(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{InfinityModifier: pgtype.Infinity, Valid: true}
	}
	return timestamptz(t)
}

func optionalText(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func optionalBool(v *bool) pgtype.Bool {
	if v == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *v, Valid: true}
}

func clampInt32(n int) int32 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	default:
		return int32(n)
	}
}
