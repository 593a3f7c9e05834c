// Package telemetry decorates an event store with OpenTelemetry spans and
// metrics. Every page fetch becomes one client span.
package telemetry

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aevon-lab/eventfold/internal/core/storage"

// Span and metric attribute keys.
const (
	AttrOperation   = attribute.Key("eventstore.operation")
	AttrAggregateID = attribute.Key("eventstore.aggregate_id")
	AttrFilter      = attribute.Key("eventstore.filter")
	AttrPageSize    = attribute.Key("eventstore.page_size")
	AttrEventCount  = attribute.Key("eventstore.event_count")
	AttrHasNext     = attribute.Key("eventstore.has_next")
	AttrEventType   = attribute.Key("eventstore.event_type")
)

var _ storage.EventStore = (*Store)(nil)

// Store records a span and metrics around each call to the wrapped store.
type Store struct {
	next storage.EventStore

	tracer         trace.Tracer
	pagesFetched   metric.Int64Counter
	eventsLoaded   metric.Int64Counter
	eventsAppended metric.Int64Counter
	storeErrors    metric.Int64Counter
	duration       metric.Float64Histogram
}

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Store.
type Option func(*config)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// Wrap decorates next. Instruments come from the global providers unless
// options replace them.
func Wrap(next storage.EventStore, opts ...Option) (*Store, error) {
	cfg := config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	meter := cfg.meterProvider.Meter(instrumentationName)
	s := &Store{
		next:   next,
		tracer: cfg.tracerProvider.Tracer(instrumentationName),
	}

	var err error
	if s.pagesFetched, err = meter.Int64Counter(
		"eventfold.eventstore.pages_fetched",
		metric.WithDescription("Number of event pages fetched"),
		metric.WithUnit("{page}"),
	); err != nil {
		return nil, err
	}
	if s.eventsLoaded, err = meter.Int64Counter(
		"eventfold.eventstore.events_loaded",
		metric.WithDescription("Number of events loaded from aggregate logs"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if s.eventsAppended, err = meter.Int64Counter(
		"eventfold.eventstore.events_appended",
		metric.WithDescription("Number of events appended to aggregate logs"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if s.storeErrors, err = meter.Int64Counter(
		"eventfold.eventstore.errors",
		metric.WithDescription("Number of failed event store calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if s.duration, err = meter.Float64Histogram(
		"eventfold.eventstore.duration",
		metric.WithDescription("Event store call duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	); err != nil {
		return nil, err
	}
	return s, nil
}

// ExecutePagedQuery fetches one page inside a client span.
func (s *Store) ExecutePagedQuery(ctx context.Context, q query.Query, cursor storage.Cursor) (storage.Page, error) {
	ctx, span := s.tracer.Start(ctx, "EventStore.ExecutePagedQuery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("page"),
			AttrAggregateID.String(q.AggregateID.String()),
			AttrFilter.String(q.Filter()),
			AttrPageSize.Int(q.PageSize),
		),
	)
	defer span.End()

	start := time.Now()
	page, err := s.next.ExecutePagedQuery(ctx, q, cursor)
	s.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrOperation.String("page")))

	if err != nil {
		s.fail(ctx, span, "page", err)
		return page, err
	}

	s.pagesFetched.Add(ctx, 1)
	s.eventsLoaded.Add(ctx, int64(len(page.Events)))
	span.SetAttributes(
		AttrEventCount.Int(len(page.Events)),
		AttrHasNext.Bool(!page.Last()),
	)
	return page, nil
}

// SaveEvent appends one event inside a client span.
func (s *Store) SaveEvent(ctx context.Context, event *v1.Event) error {
	ctx, span := s.tracer.Start(ctx, "EventStore.SaveEvent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String("save"),
			AttrAggregateID.String(event.AggregateID.String()),
			AttrEventType.String(event.Type),
		),
	)
	defer span.End()

	start := time.Now()
	err := s.next.SaveEvent(ctx, event)
	s.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrOperation.String("save")))

	if err != nil {
		s.fail(ctx, span, "save", err)
		return err
	}
	s.eventsAppended.Add(ctx, 1)
	return nil
}

func (s *Store) fail(ctx context.Context, span trace.Span, op string, err error) {
	s.storeErrors.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
