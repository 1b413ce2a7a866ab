package courier

import (
	"log/slog"

	eventtransport "github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/courierkit/courier/cache"
	"github.com/courierkit/courier/directory"
)

// options holds processor configuration supplied via Option values.
type options struct {
	cache     cache.Cache
	directory directory.Directory
	tokens    directory.TokenSource
	templates TemplateRenderer
	logger    *slog.Logger

	// Concurrency limits
	maxInFlight int

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Event handling
	eventTransport eventtransport.Transport
	redisClient    redis.UniversalClient
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:      slog.Default(),
		maxInFlight: DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Processor.
type Option func(*options)

// --- Core Options ---

// WithCache sets the recipient cache backend.
// If not provided, resolution always queries the directory.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithDirectory sets the user directory backend.
// Required when the receiver mode resolves recipients from users.
func WithDirectory(d directory.Directory) Option {
	return func(o *options) {
		if d != nil {
			o.directory = d
		}
	}
}

// WithTokenSource sets the source of service credentials passed to
// directory queries. Default is a static empty token.
func WithTokenSource(ts directory.TokenSource) Option {
	return func(o *options) {
		if ts != nil {
			o.tokens = ts
		}
	}
}

// WithTemplateRenderer sets a custom renderer for subject and bodies.
// If not provided, notifications are rendered with the plain built-in layout.
func WithTemplateRenderer(t TemplateRenderer) Option {
	return func(o *options) {
		if t != nil {
			o.templates = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// --- Concurrency Options ---

// WithMaxInFlight sets the maximum number of concurrent delivery attempts.
// This bounds resource usage independently of the throttle rate.
// Default is 10.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// --- OTel Options ---

// WithTracing enables or disables OpenTelemetry tracing.
// Default is disabled.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// Default is disabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel enables both OpenTelemetry tracing and metrics.
// This is a convenience function equivalent to calling
// WithTracing(true) and WithMetrics(true).
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name for OpenTelemetry telemetry.
// Default is "courier".
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithTracerProvider sets a custom OpenTelemetry tracer provider.
// Default uses the global tracer provider from otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom OpenTelemetry meter provider.
// Default uses the global meter provider from otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// --- Event Options ---

// WithEventTransport sets the event transport for publishing lifecycle events.
// If not provided, a noop transport is used (events are silently dropped).
func WithEventTransport(t eventtransport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithRedisClient sets a Redis client for the event transport.
// When provided, events are published to Redis Streams for reliable delivery.
//
// Compatible with *redis.Client, *redis.ClusterClient, and redis.UniversalClient.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
	}
}
