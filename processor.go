package courier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"go.opentelemetry.io/otel/attribute"

	"github.com/courierkit/courier/directory"
	"github.com/courierkit/courier/transport"
)

// Processor resolves, renders, and delivers notifications.
//
// Construct with NewProcessor, optionally Connect for lifecycle events, and
// call Process for each notification. A Processor is safe for concurrent
// use; the underlying transport is built once, on first use.
type Processor struct {
	cfg    Config
	opts   *options
	logger *slog.Logger
	otel   *instrumentation

	resolver   *recipientResolver
	renderer   renderer
	dispatcher *dispatcher

	// transport is built lazily on first Process call and memoized,
	// including its error. A processor whose transport config is broken
	// fails every Process call the same way.
	transportOnce sync.Once
	transport     transport.Transport
	transportErr  error

	// state guards eventBus and events: both are written only while the
	// state is stateConnecting and read only after observing stateConnected.
	state    int32
	eventBus *event.Bus
	events   *ProcessorEvents
}

// Event bus connection states.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// NewProcessor creates a processor from the given configuration.
//
// The transport is not opened here; the first Process call builds it.
// Configuration that can be checked without I/O is validated now.
func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	cfg = cfg.withDefaults()
	o := newOptions(opts...)

	if cfg.Sender == "" {
		return nil, ErrSenderRequired
	}
	if cfg.Transport.Kind == "" {
		return nil, ErrTransportRequired
	}
	if cfg.Receiver == ReceiverUsers && o.directory == nil {
		return nil, fmt.Errorf("%w: receiver mode %q", ErrDirectoryRequired, cfg.Receiver)
	}
	switch cfg.Receiver {
	case ReceiverNone, ReceiverConfig, ReceiverUsers:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedReceiver, cfg.Receiver)
	}

	if o.tokens == nil {
		o.tokens = directory.StaticToken("")
	}

	otelInstr, err := newInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init instrumentation: %w", err)
	}

	p := &Processor{
		cfg:    cfg,
		opts:   o,
		logger: o.logger,
		otel:   otelInstr,
		resolver: &recipientResolver{
			cfg:    cfg,
			cache:  o.cache,
			dir:    o.directory,
			tokens: o.tokens,
			logger: o.logger,
			otel:   otelInstr,
		},
		renderer:   newRenderer(o.templates),
		dispatcher: newDispatcher(cfg, o.maxInFlight, o.logger, otelInstr),
	}
	return p, nil
}

// Events returns the per-processor event instances, or nil while the
// processor is not connected.
func (p *Processor) Events() *ProcessorEvents {
	if atomic.LoadInt32(&p.state) != stateConnected {
		return nil
	}
	return p.events
}

// busCounter generates unique suffixes for event bus names.
var busCounter int64

// Connect initializes the lifecycle event bus. It is optional: a processor
// that is never connected drops its events. Calling Connect on an already
// connected processor is a no-op.
func (p *Processor) Connect(ctx context.Context) error {
	// Three states so concurrent callers never observe a half-built bus:
	// stateDisconnected -> stateConnecting -> stateConnected.
	if !atomic.CompareAndSwapInt32(&p.state, stateDisconnected, stateConnecting) {
		if atomic.LoadInt32(&p.state) == stateConnecting {
			return ErrConnectInProgress
		}
		return nil
	}

	// Reset to disconnected on failure, advance to connected on success.
	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&p.state, stateConnected)
		} else {
			atomic.StoreInt32(&p.state, stateDisconnected)
		}
	}()

	serviceName := p.opts.serviceName
	if serviceName == "" {
		serviceName = "courier"
	}
	// Each bus needs a unique name, so append a counter suffix
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case p.opts.eventTransport != nil:
		p.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(p.opts.eventTransport))
	case p.opts.redisClient != nil:
		p.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(p.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		p.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}

	events := newProcessorEvents(busName)
	if err := registerProcessorEvents(ctx, bus, events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register events: %w", err)
	}

	p.eventBus = bus
	p.events = events
	success = true
	p.logger.Info("processor connected")
	return nil
}

// Close releases the event bus. The transport needs no teardown.
// Closing a processor that is not connected is a no-op.
func (p *Processor) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.state, stateConnected, stateDisconnected) {
		return nil
	}
	return p.eventBus.Close(ctx)
}

// Process delivers one notification.
//
// Resolution failures are contained: they are logged, published as a failed
// event, and Process returns nil. Individual recipient delivery failures
// are likewise logged and never returned. The returned error is reserved
// for configuration problems that no retry of this call could fix: an
// unusable transport, an unknown receiver mode.
func (p *Processor) Process(ctx context.Context, n Notification, opts SendOptions) error {
	start := time.Now()
	dispatchID := uuid.NewString()

	ctx, end := p.otel.startSpan(ctx, "courier.Process",
		attribute.String("notification.id", n.ID),
		attribute.Bool("broadcast", opts.Recipients.Type == RecipientBroadcast || n.UserID == ""),
	)

	tr, err := p.getTransport(ctx)
	if err != nil {
		p.otel.recordProcess(ctx, time.Since(start), 0, err)
		end(err)
		return err
	}

	resolveStart := time.Now()
	recipients, err := p.resolver.resolve(ctx, n, opts)
	p.otel.recordResolve(ctx, time.Since(resolveStart), opts.Recipients.Type == RecipientBroadcast || n.UserID == "", err)
	if err != nil {
		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			p.logger.Error("recipient resolution failed, dropping notification",
				"notification", n.ID, "op", rerr.Op, "error", rerr.Cause)
			p.publishFailed(ctx, dispatchID, n, rerr.Error())
			p.otel.recordProcess(ctx, time.Since(start), 0, err)
			end(err)
			return nil
		}
		// Unknown receiver modes and other configuration faults propagate.
		p.otel.recordProcess(ctx, time.Since(start), 0, err)
		end(err)
		return err
	}

	if len(recipients) == 0 {
		p.logger.Info("no recipients resolved, skipping notification", "notification", n.ID)
		p.publishSkipped(ctx, dispatchID, n)
		p.otel.recordProcess(ctx, time.Since(start), 0, nil)
		end(nil)
		return nil
	}

	subject, html, text, err := p.renderer.render(n)
	if err != nil {
		err = fmt.Errorf("render notification %q: %w", n.ID, err)
		p.otel.recordProcess(ctx, time.Since(start), len(recipients), err)
		end(err)
		return err
	}

	msg := transport.Message{
		From:    p.cfg.Sender,
		ReplyTo: p.cfg.ReplyTo,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}

	result := p.dispatcher.dispatch(ctx, tr, msg, recipients)
	p.publishDispatched(ctx, dispatchID, n, recipients, result.FailedAddresses())
	p.otel.recordProcess(ctx, time.Since(start), len(recipients), nil)
	end(nil)
	return nil
}

// getTransport builds the delivery transport on first use and memoizes the
// result, error included.
func (p *Processor) getTransport(ctx context.Context) (transport.Transport, error) {
	p.transportOnce.Do(func() {
		tr, err := transport.New(ctx, p.cfg.Transport)
		if err != nil {
			if errors.Is(err, transport.ErrUnsupportedKind) {
				p.transportErr = fmt.Errorf("%w: %v", ErrUnsupportedTransport, err)
			} else {
				p.transportErr = fmt.Errorf("courier: build transport: %w", err)
			}
			return
		}
		p.transport = tr
		p.logger.Debug("transport initialized", "transport", tr.Name())
	})
	return p.transport, p.transportErr
}

func (p *Processor) publishDispatched(ctx context.Context, dispatchID string, n Notification, recipients, failed []string) {
	events := p.Events()
	if events == nil {
		return
	}
	if err := events.NotificationDispatched.Publish(ctx, NotificationDispatchedEvent{
		DispatchID:     dispatchID,
		NotificationID: n.ID,
		UserID:         n.UserID,
		Recipients:     recipients,
		Failed:         failed,
		DispatchedAt:   time.Now().UTC(),
	}); err != nil {
		p.logger.Error("failed to publish event", "event", "NotificationDispatched", "error", err)
	}
}

func (p *Processor) publishSkipped(ctx context.Context, dispatchID string, n Notification) {
	events := p.Events()
	if events == nil {
		return
	}
	if err := events.NotificationSkipped.Publish(ctx, NotificationSkippedEvent{
		DispatchID:     dispatchID,
		NotificationID: n.ID,
		UserID:         n.UserID,
		SkippedAt:      time.Now().UTC(),
	}); err != nil {
		p.logger.Error("failed to publish event", "event", "NotificationSkipped", "error", err)
	}
}

func (p *Processor) publishFailed(ctx context.Context, dispatchID string, n Notification, reason string) {
	events := p.Events()
	if events == nil {
		return
	}
	if err := events.NotificationFailed.Publish(ctx, NotificationFailedEvent{
		DispatchID:     dispatchID,
		NotificationID: n.ID,
		UserID:         n.UserID,
		Reason:         reason,
		FailedAt:       time.Now().UTC(),
	}); err != nil {
		p.logger.Error("failed to publish event", "event", "NotificationFailed", "error", err)
	}
}
