package courier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/courierkit/courier/transport"
)

// throttle admits at most capacity calls within any rolling window.
// Bursts up to capacity pass immediately; later calls suspend until the
// admission that happened capacity calls ago falls out of the window.
//
// This is a sliding-log limiter rather than a continuously-refilled token
// bucket: the bound holds for every window position, not just on average.
type throttle struct {
	window time.Duration

	mu sync.Mutex
	// log is a ring of the last len(log) admission times; log[idx] is the
	// admission exactly capacity calls ago. Zero times mean "never".
	log []time.Time
	idx int
}

func newThrottle(capacity int, window time.Duration) *throttle {
	return &throttle{
		window: window,
		log:    make([]time.Time, capacity),
	}
}

// wait blocks until the caller may proceed, or ctx is done.
func (t *throttle) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()
		oldest := t.log[t.idx]
		if oldest.IsZero() || now.Sub(oldest) >= t.window {
			t.log[t.idx] = now
			t.idx = (t.idx + 1) % len(t.log)
			t.mu.Unlock()
			return nil
		}
		d := t.window - now.Sub(oldest)
		t.mu.Unlock()

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SendOutcome is the result of one recipient's delivery attempt.
type SendOutcome struct {
	// Address is the recipient.
	Address string
	// Err is the delivery error, nil on success.
	Err error
}

// DispatchResult summarizes one dispatch call.
// Outcomes are in recipient order; every recipient appears exactly once.
type DispatchResult struct {
	Outcomes []SendOutcome
}

// Attempted returns the number of delivery attempts.
func (r *DispatchResult) Attempted() int {
	if r == nil {
		return 0
	}
	return len(r.Outcomes)
}

// Failed returns the number of failed attempts.
func (r *DispatchResult) Failed() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// FailedAddresses returns the recipients whose delivery failed.
func (r *DispatchResult) FailedAddresses() []string {
	if r == nil {
		return nil
	}
	var addrs []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			addrs = append(addrs, o.Address)
		}
	}
	return addrs
}

// dispatcher fans a rendered message out to a recipient list, bounding the
// send rate and isolating per-recipient failures.
type dispatcher struct {
	throttle *throttle
	sem      *semaphore.Weighted
	logger   *slog.Logger
	otel     *instrumentation
}

func newDispatcher(cfg Config, maxInFlight int, logger *slog.Logger, otel *instrumentation) *dispatcher {
	return &dispatcher{
		throttle: newThrottle(cfg.ConcurrencyLimit, cfg.ThrottleInterval),
		sem:      semaphore.NewWeighted(int64(maxInFlight)),
		logger:   logger,
		otel:     otel,
	}
}

// dispatch sends msg to every recipient through tr. It returns only after
// every recipient has had a completed attempt; a transport failure for one
// recipient is logged and recorded but never cancels or delays the others.
func (d *dispatcher) dispatch(ctx context.Context, tr transport.Transport, msg transport.Message, recipients []string) *DispatchResult {
	start := time.Now()
	result := &DispatchResult{Outcomes: make([]SendOutcome, len(recipients))}

	var wg sync.WaitGroup
	for i, addr := range recipients {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			result.Outcomes[i] = SendOutcome{Address: addr, Err: d.sendOne(ctx, tr, msg, addr)}
		}(i, addr)
	}
	wg.Wait()

	failed := result.Failed()
	fields := []any{
		slog.Int("total", result.Attempted()),
		slog.Int("failed", failed),
		slog.Duration("dur", time.Since(start)),
	}
	if failed > 0 {
		d.logger.Warn("dispatch finished with failures", fields...)
	} else {
		d.logger.Debug("dispatch finished", fields...)
	}
	return result
}

// sendOne delivers the message to a single recipient: acquire an in-flight
// slot, wait for throttle admission, send.
func (d *dispatcher) sendOne(ctx context.Context, tr transport.Transport, msg transport.Message, addr string) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.logger.Error("send aborted before admission", "to", addr, "error", err)
		return &SendError{Address: addr, Cause: err}
	}
	defer d.sem.Release(1)

	if err := d.throttle.wait(ctx); err != nil {
		d.logger.Error("send aborted while throttled", "to", addr, "error", err)
		return &SendError{Address: addr, Cause: err}
	}

	start := time.Now()
	err := tr.Send(ctx, msg.ForRecipient(addr))
	d.otel.recordSend(ctx, time.Since(start), err)
	if err != nil {
		d.logger.Error("send failed", "to", addr, "transport", tr.Name(), "error", err)
		return &SendError{Address: addr, Cause: err}
	}
	return nil
}
