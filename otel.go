package courier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/courierkit/courier"
)

// instrumentation holds OpenTelemetry instrumentation for the processor.
type instrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	// Process pipeline
	processLatency metric.Float64Histogram
	processCount   metric.Int64Counter
	processErrors  metric.Int64Counter

	// Recipient resolution
	resolveLatency metric.Float64Histogram
	resolveCount   metric.Int64Counter
	resolveErrors  metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter

	// Delivery
	sendLatency metric.Float64Histogram
	sendCount   metric.Int64Counter
	sendErrors  metric.Int64Counter
}

// newInstrumentation creates new OTel instrumentation from options.
func newInstrumentation(opts *options) (*instrumentation, error) {
	o := &instrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	// Initialize tracer
	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	// Initialize metrics
	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *instrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	// Process metrics
	o.processLatency, err = meter.Float64Histogram(
		"courier.process.duration",
		metric.WithDescription("Duration of notification processing"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.processCount, err = meter.Int64Counter(
		"courier.process.count",
		metric.WithDescription("Number of notifications processed"),
	)
	if err != nil {
		return err
	}

	o.processErrors, err = meter.Int64Counter(
		"courier.process.errors",
		metric.WithDescription("Number of processing errors"),
	)
	if err != nil {
		return err
	}

	// Resolve metrics
	o.resolveLatency, err = meter.Float64Histogram(
		"courier.resolve.duration",
		metric.WithDescription("Duration of recipient resolution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.resolveCount, err = meter.Int64Counter(
		"courier.resolve.count",
		metric.WithDescription("Number of recipient resolutions"),
	)
	if err != nil {
		return err
	}

	o.resolveErrors, err = meter.Int64Counter(
		"courier.resolve.errors",
		metric.WithDescription("Number of resolution errors"),
	)
	if err != nil {
		return err
	}

	o.cacheHits, err = meter.Int64Counter(
		"courier.resolve.cache_hits",
		metric.WithDescription("Number of recipient cache hits"),
	)
	if err != nil {
		return err
	}

	o.cacheMisses, err = meter.Int64Counter(
		"courier.resolve.cache_misses",
		metric.WithDescription("Number of recipient cache misses"),
	)
	if err != nil {
		return err
	}

	// Send metrics
	o.sendLatency, err = meter.Float64Histogram(
		"courier.send.duration",
		metric.WithDescription("Duration of per-recipient delivery"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"courier.send.count",
		metric.WithDescription("Number of delivery attempts"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"courier.send.errors",
		metric.WithDescription("Number of delivery errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// Caller must call the returned function with the operation's error when done.
func (o *instrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordProcess records processing metrics.
func (o *instrumentation) recordProcess(ctx context.Context, duration time.Duration, recipientCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int("recipient_count", recipientCount),
	)

	o.processLatency.Record(ctx, duration.Seconds(), attrs)
	o.processCount.Add(ctx, 1, attrs)
	if err != nil {
		o.processErrors.Add(ctx, 1, attrs)
	}
}

// recordResolve records recipient resolution metrics.
func (o *instrumentation) recordResolve(ctx context.Context, duration time.Duration, broadcast bool, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("broadcast", broadcast),
	)

	o.resolveLatency.Record(ctx, duration.Seconds(), attrs)
	o.resolveCount.Add(ctx, 1, attrs)
	if err != nil {
		o.resolveErrors.Add(ctx, 1, attrs)
	}
}

// recordCacheHit records a recipient cache hit.
func (o *instrumentation) recordCacheHit(ctx context.Context) {
	if !o.metricsEnabled {
		return
	}
	o.cacheHits.Add(ctx, 1)
}

// recordCacheMiss records a recipient cache miss.
func (o *instrumentation) recordCacheMiss(ctx context.Context) {
	if !o.metricsEnabled {
		return
	}
	o.cacheMisses.Add(ctx, 1)
}

// recordSend records per-recipient delivery metrics.
func (o *instrumentation) recordSend(ctx context.Context, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}

	o.sendLatency.Record(ctx, duration.Seconds())
	o.sendCount.Add(ctx, 1)
	if err != nil {
		o.sendErrors.Add(ctx, 1)
	}
}
