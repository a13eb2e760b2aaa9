package scan

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sundayezeilo/scantrack/internal/broadcast"
	"github.com/sundayezeilo/scantrack/internal/enrich"
	"github.com/sundayezeilo/scantrack/internal/errx"
	"github.com/sundayezeilo/scantrack/internal/metrics"
)

const tracerName = "github.com/sundayezeilo/scantrack/internal/scan"

// Request is an inbound scan.
type Request struct {
	ShortCode     string
	UserAgent     string
	SourceAddress string
}

// Result is a completed scan.
type Result struct {
	Code    Code
	Event   Event
	Counter int64
}

// Scanner runs the scan pipeline.
type Scanner interface {
	Scan(ctx context.Context, req Request) (Result, error)
}

// ServiceConfig holds the pipeline's collaborators.
type ServiceConfig struct {
	Resolver  *Resolver
	Enricher  *enrich.Enricher
	Recorder  *Recorder
	Publisher broadcast.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Service resolves, enriches, records and publishes a scan.
type Service struct {
	resolver  *Resolver
	enricher  *enrich.Enricher
	recorder  *Recorder
	publisher broadcast.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	enricher := cfg.Enricher
	if enricher == nil {
		enricher = enrich.New(nil)
	}

	return &Service{
		resolver:  cfg.Resolver,
		enricher:  enricher,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    logger,
		tracer:    tracer,
	}
}

// Scan runs one scan through the pipeline. The live update is published only
// after the event and counter are stored.
func (s *Service) Scan(ctx context.Context, req Request) (Result, error) {
	const op = "scan.Service.Scan"
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "scan.Scan",
		trace.WithAttributes(attribute.String("scan.short_code", req.ShortCode)),
	)
	defer span.End()

	code, err := s.resolver.Resolve(ctx, req.ShortCode)
	if err != nil {
		return Result{}, s.fail(span, start, op, err)
	}

	enr := s.enricher.Enrich(req.UserAgent, req.SourceAddress)
	span.SetAttributes(
		attribute.String("scan.device_class", enr.DeviceClass),
		attribute.String("scan.country", enr.Country),
	)

	ev, counter, err := s.recorder.Record(ctx, code, enr, req.UserAgent)
	if err != nil {
		return Result{}, s.fail(span, start, op, err)
	}
	span.SetAttributes(attribute.Int64("scan.counter", counter))

	if s.publisher != nil {
		s.publisher.Publish(broadcast.NewScanUpdate(broadcast.ScanUpdate{
			CodeID:       code.ID.String(),
			ShortCode:    code.ShortCode,
			CounterValue: counter,
			ScanSummary: broadcast.ScanSummary{
				Timestamp:   ev.OccurredAt,
				DeviceClass: ev.DeviceClass,
				Country:     ev.Country,
				City:        ev.City,
			},
		}))
	}

	s.metrics.ObserveScan(metrics.OutcomeRedirected, time.Since(start))
	code.ScanCount = counter
	return Result{Code: code, Event: ev, Counter: counter}, nil
}

func (s *Service) fail(span trace.Span, start time.Time, op string, err error) error {
	kind := errx.KindOf(err)
	s.metrics.ObserveScan(outcomeFor(kind), time.Since(start))

	span.SetAttributes(attribute.String("error.kind", kind.String()))
	if kind != errx.NotFound && kind != errx.Deactivated {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
	}
	return errx.Wrap(op, errx.Internal, err)
}

func outcomeFor(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return metrics.OutcomeNotFound
	case errx.Deactivated:
		return metrics.OutcomeDeactivated
	case errx.Timeout:
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailed
	}
}
