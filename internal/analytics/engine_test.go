package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/scantrack/internal/analytics"
	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/metrics"
	"github.com/sundayezeilo/scantrack/internal/scan"
	"github.com/sundayezeilo/scantrack/internal/store/memstore"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memstore.Store
	engine *analytics.Engine
}

func newFixture(t *testing.T, opts ...func(*analytics.Config)) fixture {
	t.Helper()
	store := memstore.New(memstore.WithClock(func() time.Time { return now.Add(-48 * time.Hour) }))
	cfg := analytics.Config{
		Store: store,
		Clock: func() time.Time { return now },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return fixture{store: store, engine: analytics.NewEngine(cfg)}
}

func (f fixture) code(t *testing.T, short string) scan.Code {
	t.Helper()
	c, err := f.store.Create(context.Background(), scan.Code{
		ShortCode:      short,
		DestinationURL: "https://example.com/" + short,
		Title:          "Code " + short,
		Active:         true,
	})
	require.NoError(t, err)
	return c
}

type scanOpt func(*scan.Event)

func withGeo(country, city string) scanOpt {
	return func(ev *scan.Event) { ev.Country, ev.City = country, city }
}

func withBrowser(b string) scanOpt {
	return func(ev *scan.Event) { ev.Browser = b }
}

func (f fixture) scan(t *testing.T, c scan.Code, at time.Time, device string, opts ...scanOpt) {
	t.Helper()
	ev := scan.Event{
		ID:          uuid.New(),
		CodeID:      c.ID,
		ShortCode:   c.ShortCode,
		OccurredAt:  at,
		DeviceClass: device,
		Browser:     "unknown",
		OS:          "unknown",
		Country:     "unknown",
		City:        "unknown",
	}
	for _, opt := range opts {
		opt(&ev)
	}
	_, err := f.store.AppendScan(context.Background(), ev)
	require.NoError(t, err)
}

func TestDashboardCountsDevices(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")

	f.scan(t, c, now.Add(-3*time.Hour), "mobile", withGeo("US", "Boston"))
	f.scan(t, c, now.Add(-2*time.Hour), "desktop", withGeo("US", "Austin"))
	f.scan(t, c, now.Add(-1*time.Hour), "mobile", withGeo("DE", "Berlin"))

	d, err := f.engine.Dashboard(context.Background(), analytics.Period7d)
	require.NoError(t, err)

	assert.Equal(t, analytics.Period7d, d.Period)
	assert.Equal(t, now, d.Window.End)
	assert.Equal(t, now.Add(-7*24*time.Hour), d.Window.Start)
	assert.EqualValues(t, 1, d.TotalCodes)
	assert.EqualValues(t, 1, d.ActiveCodes)
	assert.EqualValues(t, 3, d.TotalScans)
	assert.EqualValues(t, 3, d.PeriodScans)
	assert.Equal(t, []analytics.Breakdown{
		{Key: "mobile", Count: 2},
		{Key: "desktop", Count: 1},
	}, d.DeviceStats)
	assert.Equal(t, []analytics.Breakdown{
		{Key: "US", Count: 2},
		{Key: "DE", Count: 1},
	}, d.TopCountries)
	assert.Equal(t, []analytics.DayCount{{Date: "2026-03-14", Count: 3}}, d.DailyScans)

	require.Len(t, d.MostScanned, 1)
	assert.EqualValues(t, 3, d.MostScanned[0].ScanCount)

	require.Len(t, d.RecentScans, 3)
	assert.Equal(t, now.Add(-time.Hour), d.RecentScans[0].OccurredAt)
	assert.Equal(t, "Code abcd1234", d.RecentScans[0].CodeTitle)
	assert.True(t, d.RecentScans[0].CodeExists)
}

func TestDashboardWindowExcludesOlderScans(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")

	f.scan(t, c, now.Add(-24*time.Hour), "mobile")
	f.scan(t, c, now.Add(-24*time.Hour-time.Second), "desktop")

	d, err := f.engine.Dashboard(context.Background(), analytics.Period24h)
	require.NoError(t, err)

	assert.EqualValues(t, 2, d.TotalScans)
	assert.EqualValues(t, 1, d.PeriodScans)
	assert.Equal(t, []analytics.Breakdown{{Key: "mobile", Count: 1}}, d.DeviceStats)
}

func TestDashboardEmpty(t *testing.T) {
	f := newFixture(t)

	d, err := f.engine.Dashboard(context.Background(), analytics.Period7d)
	require.NoError(t, err)

	assert.Zero(t, d.TotalCodes)
	assert.NotNil(t, d.MostScanned)
	assert.NotNil(t, d.RecentScans)
	assert.NotNil(t, d.DeviceStats)
	assert.NotNil(t, d.DailyScans)
	assert.NotNil(t, d.TopCountries)
}

func TestDashboardMostScannedLimit(t *testing.T) {
	f := newFixture(t)
	for i := range 7 {
		c := f.code(t, "code000"+string(rune('a'+i)))
		for range i {
			f.scan(t, c, now.Add(-time.Minute), "mobile")
		}
	}

	d, err := f.engine.Dashboard(context.Background(), analytics.Period7d)
	require.NoError(t, err)

	require.Len(t, d.MostScanned, 5)
	assert.EqualValues(t, 6, d.MostScanned[0].ScanCount)
	assert.EqualValues(t, 2, d.MostScanned[4].ScanCount)
	assert.Len(t, d.RecentScans, 10)
}

func TestCodeAnalytics(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")
	other := f.code(t, "ffff0000")

	f.scan(t, c, now.Add(-3*time.Hour), "mobile", withBrowser("Safari"), withGeo("US", "Boston"))
	f.scan(t, c, now.Add(-3*time.Hour), "mobile", withBrowser("Chrome"), withGeo("US", "Boston"))
	f.scan(t, c, now.Add(-1*time.Hour), "tablet")
	f.scan(t, other, now.Add(-1*time.Hour), "desktop", withBrowser("Firefox"))

	a, err := f.engine.CodeAnalytics(context.Background(), c.ID, analytics.Period30d)
	require.NoError(t, err)

	assert.Equal(t, c.ID.String(), a.Code.ID)
	assert.EqualValues(t, 3, a.TotalScans)
	assert.EqualValues(t, 3, a.PeriodScans)
	assert.Equal(t, []analytics.Breakdown{
		{Key: "mobile", Count: 2},
		{Key: "tablet", Count: 1},
	}, a.DeviceStats)
	assert.Equal(t, []analytics.HourCount{
		{Hour: 9, Count: 2},
		{Hour: 11, Count: 1},
	}, a.HourlyDistribution)
	assert.Equal(t, []analytics.LocationCount{{Country: "US", City: "Boston", Count: 2}}, a.Locations)
	assert.Equal(t, []analytics.Breakdown{
		{Key: "Chrome", Count: 1},
		{Key: "Safari", Count: 1},
	}, a.Browsers)
}

func TestCodeAnalyticsWithoutScans(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")

	a, err := f.engine.CodeAnalytics(context.Background(), c.ID, analytics.Period30d)
	require.NoError(t, err)

	assert.Zero(t, a.TotalScans)
	assert.NotNil(t, a.DeviceStats)
	assert.Empty(t, a.DeviceStats)
	assert.NotNil(t, a.HourlyDistribution)
	assert.NotNil(t, a.DailyTrend)
	assert.NotNil(t, a.Locations)
	assert.NotNil(t, a.Browsers)
}

func TestCodeAnalyticsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CodeAnalytics(context.Background(), uuid.New(), analytics.Period30d)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.Equal(t, "analytics.Engine.CodeAnalytics", errx.OpOf(err))
}

func TestCodeAnalyticsUsesTimeZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	f := newFixture(t, func(c *analytics.Config) { c.TimeZone = tokyo })
	c := f.code(t, "abcd1234")

	// 16:00 UTC on Mar 13 is 01:00 on Mar 14 in Tokyo.
	f.scan(t, c, time.Date(2026, 3, 13, 16, 0, 0, 0, time.UTC), "mobile")

	a, err := f.engine.CodeAnalytics(context.Background(), c.ID, analytics.Period7d)
	require.NoError(t, err)

	assert.Equal(t, []analytics.DayCount{{Date: "2026-03-14", Count: 1}}, a.DailyTrend)
	assert.Equal(t, []analytics.HourCount{{Hour: 1, Count: 1}}, a.HourlyDistribution)
}

func TestCodeScansPaging(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")
	for i := range 5 {
		f.scan(t, c, now.Add(-time.Duration(i)*time.Minute), "mobile")
	}

	page, err := f.engine.CodeScans(context.Background(), c.ID, analytics.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Scans, 2)
	assert.Equal(t, now.Add(-2*time.Minute), page.Scans[0].OccurredAt)

	capped, err := f.engine.CodeScans(context.Background(), c.ID, analytics.PageRequest{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, analytics.MaxPageSize, capped.Limit)
	assert.Equal(t, 1, capped.Page)

	ranged, err := f.engine.CodeScans(context.Background(), c.ID, analytics.PageRequest{
		From: now.Add(-3 * time.Minute),
		To:   now.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, ranged.Total)
	assert.Equal(t, analytics.DefaultPageSize, ranged.Limit)
}

func TestCodeScansPageOutOfRange(t *testing.T) {
	f := newFixture(t)
	c := f.code(t, "abcd1234")
	f.scan(t, c, now.Add(-time.Minute), "mobile")

	_, err := f.engine.CodeScans(context.Background(), c.ID, analytics.PageRequest{Page: 1 << 62, Limit: analytics.MaxPageSize})
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))

	last, err := f.engine.CodeScans(context.Background(), c.ID, analytics.PageRequest{Page: analytics.MaxPage, Limit: analytics.MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, last.Scans)
	assert.EqualValues(t, 1, last.Total)
}

// stallingStore blocks every call until the query deadline passes.
type stallingStore struct {
	analytics.Store
}

func (stallingStore) CountCodes(ctx context.Context) (analytics.CodeTotals, error) {
	<-ctx.Done()
	return analytics.CodeTotals{}, errx.E("stall.CountCodes", errx.StorageKind(ctx.Err()), ctx.Err())
}

func TestDashboardTimeout(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	engine := analytics.NewEngine(analytics.Config{
		Store:        stallingStore{Store: memstore.New()},
		Clock:        func() time.Time { return now },
		QueryTimeout: 20 * time.Millisecond,
		Metrics:      m,
	})

	_, err := engine.Dashboard(context.Background(), analytics.Period7d)
	require.Error(t, err)
	assert.Equal(t, errx.Timeout, errx.KindOf(err))
	assert.True(t, errx.KindOf(err).Retryable())
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "scantrack_analytics_query_duration_seconds"))
}

// failingStore fails FindCode with an unclassified error.
type failingStore struct {
	analytics.Store
}

func (failingStore) FindCode(ctx context.Context, id uuid.UUID) (scan.Code, error) {
	return scan.Code{}, errors.New("connection reset")
}

func TestCodeAnalyticsStorageFailure(t *testing.T) {
	engine := analytics.NewEngine(analytics.Config{Store: failingStore{Store: memstore.New()}})

	_, err := engine.CodeAnalytics(context.Background(), uuid.New(), analytics.Period7d)
	assert.Equal(t, errx.Persistence, errx.KindOf(err))
}
