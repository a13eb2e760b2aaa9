// Package analytics answers windowed aggregate queries over recorded scans.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/metrics"
	"github.com/sundayezeilo/scantrack/internal/scan"
)

const (
	DefaultQueryTimeout = 10 * time.Second

	mostScannedLimit = 5
	recentScansLimit = 10
	topCountryLimit  = 10
	topLocationLimit = 10

	DefaultPageSize = 50
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*limit within an int32 row offset.
	MaxPage = math.MaxInt32/MaxPageSize + 1

	tracerName = "github.com/sundayezeilo/scantrack/internal/analytics"
)

// Config holds configuration for the engine.
type Config struct {
	Store        Store
	Clock        func() time.Time
	TimeZone     *time.Location // reference zone for daily and hourly buckets (default: UTC)
	QueryTimeout time.Duration
	Metrics      *metrics.Metrics
	Tracer       trace.Tracer
}

type Engine struct {
	store   Store
	now     func() time.Time
	loc     *time.Location
	timeout time.Duration
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewEngine(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := cfg.TimeZone
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Engine{
		store:   cfg.Store,
		now:     clock,
		loc:     loc,
		timeout: timeout,
		metrics: cfg.Metrics,
		tracer:  tracer,
	}
}

// Dashboard aggregates scans across every code over period p.
func (e *Engine) Dashboard(ctx context.Context, p Period) (Dashboard, error) {
	const op = "analytics.Engine.Dashboard"

	ctx, finish := e.begin(ctx, "dashboard", p)
	var err error
	defer func() { finish(err) }()

	w := p.WindowAt(e.now())
	inWindow := Filter{Since: w.Start, Until: w.End, Location: e.loc}

	var (
		totals    CodeTotals
		total     int64
		windowed  int64
		top       []scan.Code
		recent    []RecentScan
		devices   []Bucket
		days      []Bucket
		countries []Bucket
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { totals, err = e.store.CountCodes(gctx); return })
	g.Go(func() (err error) { total, err = e.store.CountScans(gctx, Filter{}); return })
	g.Go(func() (err error) { windowed, err = e.store.CountScans(gctx, inWindow); return })
	g.Go(func() (err error) { top, err = e.store.TopCodes(gctx, mostScannedLimit); return })
	g.Go(func() (err error) { recent, err = e.store.RecentScans(gctx, recentScansLimit); return })
	g.Go(func() (err error) { devices, err = e.store.CountBy(gctx, ByDevice, inWindow); return })
	g.Go(func() (err error) { days, err = e.store.CountBy(gctx, ByDay, inWindow); return })
	g.Go(func() (err error) {
		f := inWindow
		f.Limit = topCountryLimit
		countries, err = e.store.CountBy(gctx, ByCountry, f)
		return
	})

	if err = g.Wait(); err != nil {
		err = e.classify(ctx, op, err)
		return Dashboard{}, err
	}

	return Dashboard{
		Period:       p,
		Window:       w,
		TotalCodes:   totals.Total,
		ActiveCodes:  totals.Active,
		TotalScans:   total,
		PeriodScans:  windowed,
		MostScanned:  summaries(top),
		RecentScans:  recentViews(recent),
		DeviceStats:  breakdowns(devices),
		DailyScans:   dayCounts(days),
		TopCountries: breakdowns(countries),
	}, nil
}

// CodeAnalytics aggregates the scans of one code over period p. It fails with
// errx.NotFound when codeID does not resolve.
func (e *Engine) CodeAnalytics(ctx context.Context, codeID uuid.UUID, p Period) (CodeAnalytics, error) {
	const op = "analytics.Engine.CodeAnalytics"

	ctx, finish := e.begin(ctx, "code", p)
	var err error
	defer func() { finish(err) }()

	code, err := e.store.FindCode(ctx, codeID)
	if err != nil {
		err = e.classify(ctx, op, err)
		return CodeAnalytics{}, err
	}

	w := p.WindowAt(e.now())
	id := uuid.NullUUID{UUID: codeID, Valid: true}
	inWindow := Filter{CodeID: id, Since: w.Start, Until: w.End, Location: e.loc}

	var (
		total     int64
		windowed  int64
		devices   []Bucket
		hours     []Bucket
		days      []Bucket
		locations []Bucket
		browsers  []Bucket
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { total, err = e.store.CountScans(gctx, Filter{CodeID: id}); return })
	g.Go(func() (err error) { windowed, err = e.store.CountScans(gctx, inWindow); return })
	g.Go(func() (err error) { devices, err = e.store.CountBy(gctx, ByDevice, inWindow); return })
	g.Go(func() (err error) { hours, err = e.store.CountBy(gctx, ByHour, inWindow); return })
	g.Go(func() (err error) { days, err = e.store.CountBy(gctx, ByDay, inWindow); return })
	g.Go(func() (err error) {
		f := inWindow
		f.Limit = topLocationLimit
		locations, err = e.store.CountBy(gctx, ByLocation, f)
		return
	})
	g.Go(func() (err error) { browsers, err = e.store.CountBy(gctx, ByBrowser, inWindow); return })

	if err = g.Wait(); err != nil {
		err = e.classify(ctx, op, err)
		return CodeAnalytics{}, err
	}

	return CodeAnalytics{
		Period:             p,
		Window:             w,
		Code:               summary(code),
		TotalScans:         total,
		PeriodScans:        windowed,
		DeviceStats:        breakdowns(devices),
		HourlyDistribution: hourCounts(hours),
		DailyTrend:         dayCounts(days),
		Locations:          locationCounts(locations),
		Browsers:           breakdowns(browsers),
	}, nil
}

// PageRequest selects a page of a code's raw scans. Zero From or To leave
// that side open.
type PageRequest struct {
	Page  int
	Limit int
	From  time.Time
	To    time.Time
}

// CodeScans lists a code's raw scans newest first.
func (e *Engine) CodeScans(ctx context.Context, codeID uuid.UUID, req PageRequest) (ScanPage, error) {
	const op = "analytics.Engine.CodeScans"

	ctx, finish := e.begin(ctx, "scans", "")
	var err error
	defer func() { finish(err) }()

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	if page > MaxPage {
		err = errx.E(op, errx.Invalid, fmt.Errorf("page must be at most %d", MaxPage))
		return ScanPage{}, err
	}

	if _, err = e.store.FindCode(ctx, codeID); err != nil {
		err = e.classify(ctx, op, err)
		return ScanPage{}, err
	}

	f := Filter{
		CodeID: uuid.NullUUID{UUID: codeID, Valid: true},
		Since:  req.From,
		Until:  req.To,
		Limit:  limit,
	}

	var (
		total  int64
		events []scan.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { total, err = e.store.CountScans(gctx, f); return })
	g.Go(func() (err error) { events, err = e.store.ListScans(gctx, codeID, f, (page-1)*limit); return })
	if err = g.Wait(); err != nil {
		err = e.classify(ctx, op, err)
		return ScanPage{}, err
	}

	views := make([]ScanView, 0, len(events))
	for _, ev := range events {
		views = append(views, scanView(ev))
	}

	return ScanPage{
		Scans:      views,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// begin opens the span and deadline for one query. The returned func ends
// both and records the outcome.
func (e *Engine) begin(ctx context.Context, query string, p Period) (context.Context, func(error)) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	ctx, span := e.tracer.Start(ctx, "analytics."+query,
		trace.WithAttributes(attribute.String("analytics.period", string(p))),
	)

	return ctx, func(err error) {
		if err != nil && errx.KindOf(err) != errx.NotFound {
			span.RecordError(err)
			span.SetStatus(codes.Error, errx.KindOf(err).String())
		}
		span.End()
		cancel()
		e.metrics.ObserveQuery(query, time.Since(start))
	}
}

// classify reports an expired query deadline as Timeout. Other errors keep
// the store's kind, defaulting to Persistence.
func (e *Engine) classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errx.E(op, errx.Timeout, err)
	}
	return errx.Wrap(op, errx.StorageKind(err), err)
}

func summaries(list []scan.Code) []CodeSummary {
	out := make([]CodeSummary, 0, len(list))
	for _, c := range list {
		out = append(out, summary(c))
	}
	return out
}

func summary(c scan.Code) CodeSummary {
	return CodeSummary{
		ID:             c.ID.String(),
		ShortCode:      c.ShortCode,
		Title:          c.Title,
		Description:    c.Description,
		DestinationURL: c.DestinationURL,
		Active:         c.Active,
		ScanCount:      c.ScanCount,
		CreatedAt:      c.CreatedAt,
	}
}

func scanView(ev scan.Event) ScanView {
	return ScanView{
		ID:          ev.ID.String(),
		CodeID:      ev.CodeID.String(),
		ShortCode:   ev.ShortCode,
		OccurredAt:  ev.OccurredAt,
		DeviceClass: ev.DeviceClass,
		Browser:     ev.Browser,
		OS:          ev.OS,
		Country:     ev.Country,
		City:        ev.City,
	}
}

func recentViews(rows []RecentScan) []RecentScanView {
	out := make([]RecentScanView, 0, len(rows))
	for _, r := range rows {
		out = append(out, RecentScanView{
			ScanView:   scanView(r.Event),
			CodeTitle:  r.CodeTitle,
			CodeExists: r.CodeExists,
		})
	}
	return out
}

func breakdowns(buckets []Bucket) []Breakdown {
	out := make([]Breakdown, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Breakdown{Key: b.Key, Count: b.Count})
	}
	return out
}

func dayCounts(buckets []Bucket) []DayCount {
	out := make([]DayCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, DayCount{Date: b.Key, Count: b.Count})
	}
	return out
}

func hourCounts(buckets []Bucket) []HourCount {
	out := make([]HourCount, 0, len(buckets))
	for _, b := range buckets {
		h, err := strconv.Atoi(b.Key)
		if err != nil {
			continue
		}
		out = append(out, HourCount{Hour: h, Count: b.Count})
	}
	return out
}

func locationCounts(buckets []Bucket) []LocationCount {
	out := make([]LocationCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, LocationCount{Country: b.Key, City: b.SubKey, Count: b.Count})
	}
	return out
}
