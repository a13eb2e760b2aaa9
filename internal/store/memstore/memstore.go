// Package memstore is an in-memory store for local runs and tests. A single
// RWMutex guards all state; AppendScan updates the event log and the counter
// under the same write lock.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/codes"
	"github.com/sundayezeilo/scantrack/internal/enrich"
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

var (
	errCodeNotFound  = errors.New("code not found")
	errShortCodeUsed = errors.New("short code already exists")
)

type Store struct {
	mu      sync.RWMutex
	codes   map[uuid.UUID]scan.Code
	byShort map[string]uuid.UUID
	events  []scan.Event
	ids     idgen.Generator
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		codes:   make(map[uuid.UUID]scan.Code),
		byShort: make(map[string]uuid.UUID),
		ids:     idgen.NewV7(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, code scan.Code) (scan.Code, error) {
	const op = "memstore.Create"
	if err := ctx.Err(); err != nil {
		return scan.Code{}, errx.E(op, errx.StorageKind(err), err)
	}

	if code.ID == uuid.Nil {
		id, err := s.ids.Generate()
		if err != nil {
			return scan.Code{}, errx.E(op, errx.Unavailable, err)
		}
		code.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byShort[code.ShortCode]; taken {
		return scan.Code{}, errx.E(op, errx.Conflict, fmt.Errorf("%w: %s", errShortCodeUsed, code.ShortCode))
	}
	if _, taken := s.codes[code.ID]; taken {
		return scan.Code{}, errx.E(op, errx.Conflict, fmt.Errorf("duplicate id %s", code.ID))
	}

	now := s.now().UTC()
	code.ScanCount = 0
	code.CreatedAt = now
	code.UpdatedAt = now

	s.codes[code.ID] = code
	s.byShort[code.ShortCode] = code.ID
	return code, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	const op = "memstore.FindByID"
	if err := ctx.Err(); err != nil {
		return scan.Code{}, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.codes[id]
	if !ok {
		return scan.Code{}, errx.E(op, errx.NotFound, errCodeNotFound)
	}
	return code, nil
}

// FindCode is FindByID under the name the aggregation store uses.
func (s *Store) FindCode(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	return s.FindByID(ctx, id)
}

func (s *Store) FindByShortCode(ctx context.Context, shortCode string) (scan.Code, error) {
	const op = "memstore.FindByShortCode"
	if err := ctx.Err(); err != nil {
		return scan.Code{}, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byShort[shortCode]
	if !ok {
		return scan.Code{}, errx.E(op, errx.NotFound, errCodeNotFound)
	}
	return s.codes[id], nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, c codes.Changes) (scan.Code, error) {
	const op = "memstore.Update"
	if err := ctx.Err(); err != nil {
		return scan.Code{}, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[id]
	if !ok {
		return scan.Code{}, errx.E(op, errx.NotFound, errCodeNotFound)
	}
	if c.DestinationURL != nil {
		code.DestinationURL = *c.DestinationURL
	}
	if c.Title != nil {
		code.Title = *c.Title
	}
	if c.Description != nil {
		code.Description = *c.Description
	}
	if c.Active != nil {
		code.Active = *c.Active
	}
	code.UpdatedAt = s.now().UTC()
	s.codes[id] = code
	return code, nil
}

// List filters, orders and pages code records the way the SQL store does.
func (s *Store) List(ctx context.Context, q codes.ListQuery) ([]scan.Code, int64, error) {
	const op = "memstore.List"
	if err := ctx.Err(); err != nil {
		return nil, 0, errx.E(op, errx.StorageKind(err), err)
	}

	needle := strings.ToLower(q.Search)

	s.mu.RLock()
	var out []scan.Code
	for _, c := range s.codes {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.Title), needle) ||
			strings.Contains(strings.ToLower(c.DestinationURL), needle) ||
			strings.Contains(strings.ToLower(c.ShortCode), needle) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b scan.Code) int {
		switch q.Sort {
		case codes.SortMostScanned:
			if c := cmp.Compare(b.ScanCount, a.ScanCount); c != 0 {
				return c
			}
		case codes.SortOldest:
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})

	total := int64(len(out))
	if q.Offset < 0 || q.Offset >= len(out) {
		return []scan.Code{}, total, nil
	}
	return truncate(out[q.Offset:], q.Limit), total, nil
}

// Delete removes a code record. Its scan events are kept.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "memstore.Delete"
	if err := ctx.Err(); err != nil {
		return errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[id]
	if !ok {
		return errx.E(op, errx.NotFound, errCodeNotFound)
	}
	delete(s.codes, id)
	delete(s.byShort, code.ShortCode)
	return nil
}

func (s *Store) AppendScan(ctx context.Context, ev scan.Event) (int64, error) {
	const op = "memstore.AppendScan"
	if err := ctx.Err(); err != nil {
		return 0, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[ev.CodeID]
	if !ok {
		return 0, errx.E(op, errx.NotFound, errCodeNotFound)
	}

	code.ScanCount++
	s.codes[ev.CodeID] = code
	s.events = append(s.events, ev)
	return code.ScanCount, nil
}

func (s *Store) CountCodes(ctx context.Context) (analytics.CodeTotals, error) {
	const op = "memstore.CountCodes"
	if err := ctx.Err(); err != nil {
		return analytics.CodeTotals{}, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := analytics.CodeTotals{Total: int64(len(s.codes))}
	for _, c := range s.codes {
		if c.Active {
			totals.Active++
		}
	}
	return totals, nil
}

func (s *Store) CountScans(ctx context.Context, f analytics.Filter) (int64, error) {
	const op = "memstore.CountScans"
	if err := ctx.Err(); err != nil {
		return 0, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, ev := range s.events {
		if matches(ev, f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) TopCodes(ctx context.Context, limit int) ([]scan.Code, error) {
	const op = "memstore.TopCodes"
	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	out := make([]scan.Code, 0, len(s.codes))
	for _, c := range s.codes {
		out = append(out, c)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b scan.Code) int {
		if c := cmp.Compare(b.ScanCount, a.ScanCount); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return truncate(out, limit), nil
}

func (s *Store) RecentScans(ctx context.Context, limit int) ([]analytics.RecentScan, error) {
	const op = "memstore.RecentScans"
	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.StorageKind(err), err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events := newestFirst(slices.Clone(s.events))
	events = truncate(events, limit)

	out := make([]analytics.RecentScan, 0, len(events))
	for _, ev := range events {
		row := analytics.RecentScan{Event: ev}
		if c, ok := s.codes[ev.CodeID]; ok {
			row.CodeTitle = c.Title
			row.CodeExists = true
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) CountBy(ctx context.Context, dim analytics.Dimension, f analytics.Filter) ([]analytics.Bucket, error) {
	const op = "memstore.CountBy"
	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.StorageKind(err), err)
	}

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}

	type key struct{ k, sub string }
	counts := make(map[key]int64)

	s.mu.RLock()
	for _, ev := range s.events {
		if !matches(ev, f) {
			continue
		}
		var k key
		switch dim {
		case analytics.ByDevice:
			k.k = ev.DeviceClass
		case analytics.ByBrowser:
			k.k = ev.Browser
		case analytics.ByCountry:
			k.k = ev.Country
		case analytics.ByLocation:
			k.k, k.sub = ev.Country, ev.City
		case analytics.ByDay:
			k.k = ev.OccurredAt.In(loc).Format(time.DateOnly)
		case analytics.ByHour:
			k.k = strconv.Itoa(ev.OccurredAt.In(loc).Hour())
		default:
			s.mu.RUnlock()
			return nil, errx.E(op, errx.Invalid, fmt.Errorf("unsupported dimension %v", dim))
		}
		if excludesUnknown(dim) && k.k == enrich.Unknown {
			continue
		}
		counts[k]++
	}
	s.mu.RUnlock()

	out := make([]analytics.Bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, analytics.Bucket{Key: k.k, SubKey: k.sub, Count: n})
	}

	switch dim {
	case analytics.ByDay:
		slices.SortFunc(out, func(a, b analytics.Bucket) int { return cmp.Compare(a.Key, b.Key) })
	case analytics.ByHour:
		slices.SortFunc(out, func(a, b analytics.Bucket) int {
			ha, _ := strconv.Atoi(a.Key)
			hb, _ := strconv.Atoi(b.Key)
			return cmp.Compare(ha, hb)
		})
	default:
		slices.SortFunc(out, func(a, b analytics.Bucket) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Key, b.Key); c != 0 {
				return c
			}
			return cmp.Compare(a.SubKey, b.SubKey)
		})
		out = truncate(out, f.Limit)
	}
	return out, nil
}

func (s *Store) ListScans(ctx context.Context, codeID uuid.UUID, f analytics.Filter, offset int) ([]scan.Event, error) {
	const op = "memstore.ListScans"
	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.StorageKind(err), err)
	}

	f.CodeID = uuid.NullUUID{UUID: codeID, Valid: true}

	s.mu.RLock()
	var out []scan.Event
	for _, ev := range s.events {
		if matches(ev, f) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	out = newestFirst(out)
	if offset < 0 || offset >= len(out) {
		return []scan.Event{}, nil
	}
	return truncate(out[offset:], f.Limit), nil
}

func matches(ev scan.Event, f analytics.Filter) bool {
	if f.CodeID.Valid && ev.CodeID != f.CodeID.UUID {
		return false
	}
	if !f.Since.IsZero() && ev.OccurredAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && ev.OccurredAt.After(f.Until) {
		return false
	}
	return true
}

func excludesUnknown(dim analytics.Dimension) bool {
	switch dim {
	case analytics.ByBrowser, analytics.ByCountry, analytics.ByLocation:
		return true
	default:
		return false
	}
}

func newestFirst(events []scan.Event) []scan.Event {
	slices.SortFunc(events, func(a, b scan.Event) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})
	return events
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
