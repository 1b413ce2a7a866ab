package courier

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/courierkit/courier/transport"
)

// recordingTransport records each send with its wall-clock time and can be
// told to fail specific recipients.
type recordingTransport struct {
	mu    sync.Mutex
	sends []recordedSend
	fail  map[string]error
}

type recordedSend struct {
	to string
	at time.Time
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Send(_ context.Context, msg transport.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, recordedSend{to: msg.To, at: time.Now()})
	if err, ok := t.fail[msg.To]; ok {
		return err
	}
	return nil
}

func (t *recordingTransport) recipients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sends))
	for i, s := range t.sends {
		out[i] = s.to
	}
	return out
}

func newTestDispatcher(limit int, window time.Duration) *dispatcher {
	cfg := Config{ConcurrencyLimit: limit, ThrottleInterval: window}.withDefaults()
	return newDispatcher(cfg, DefaultMaxInFlight, testLogger(), &instrumentation{})
}

func TestThrottle(t *testing.T) {
	t.Run("Burst up to capacity is immediate", func(t *testing.T) {
		th := newThrottle(3, time.Second)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := th.wait(ctx); err != nil {
				t.Fatalf("wait %d: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("burst took %v, expected immediate admission", elapsed)
		}
	})

	t.Run("Admission beyond capacity waits for the window", func(t *testing.T) {
		window := 80 * time.Millisecond
		th := newThrottle(2, window)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := th.wait(ctx); err != nil {
				t.Fatalf("wait %d: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed < window {
			t.Errorf("third admission after %v, want at least %v", elapsed, window)
		}
	})

	t.Run("Cancellation unblocks waiters", func(t *testing.T) {
		th := newThrottle(1, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())

		if err := th.wait(ctx); err != nil {
			t.Fatalf("first wait: %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- th.wait(ctx) }()
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter did not unblock on cancellation")
		}
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	msg := transport.Message{From: "noreply@x.io", Subject: "hi"}

	t.Run("Every recipient attempted exactly once", func(t *testing.T) {
		tr := &recordingTransport{}
		d := newTestDispatcher(10, 10*time.Millisecond)
		recipients := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"}

		result := d.dispatch(ctx, tr, msg, recipients)
		if result.Attempted() != len(recipients) {
			t.Errorf("attempted = %d, want %d", result.Attempted(), len(recipients))
		}
		if result.Failed() != 0 {
			t.Errorf("failed = %d, want 0", result.Failed())
		}

		got := tr.recipients()
		sort.Strings(got)
		if len(got) != len(recipients) {
			t.Fatalf("transport saw %d sends, want %d", len(got), len(recipients))
		}
		for i, addr := range recipients {
			if got[i] != addr {
				t.Errorf("send %d = %q, want %q", i, got[i], addr)
			}
		}
	})

	t.Run("Rate is bounded per rolling window", func(t *testing.T) {
		window := 100 * time.Millisecond
		limit := 2
		tr := &recordingTransport{}
		d := newTestDispatcher(limit, window)
		recipients := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"}

		start := time.Now()
		result := d.dispatch(ctx, tr, msg, recipients)
		elapsed := time.Since(start)

		if result.Attempted() != 5 {
			t.Fatalf("attempted = %d, want 5", result.Attempted())
		}
		// 5 sends at 2 per 100ms: admissions at 0, 0, 100ms, 100ms, 200ms.
		if lower := 2 * window; elapsed < lower {
			t.Errorf("dispatch finished in %v, want at least %v", elapsed, lower)
		}

		tr.mu.Lock()
		times := make([]time.Time, len(tr.sends))
		for i, s := range tr.sends {
			times[i] = s.at
		}
		tr.mu.Unlock()
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		// Allow scheduling slop between admission and the recorded send.
		const slop = 30 * time.Millisecond
		for i := 0; i+limit < len(times); i++ {
			if gap := times[i+limit].Sub(times[i]); gap < window-slop {
				t.Errorf("sends %d and %d only %v apart, want about %v", i, i+limit, gap, window)
			}
		}
	})

	t.Run("One failure does not block the others", func(t *testing.T) {
		boom := errors.New("mailbox full")
		tr := &recordingTransport{fail: map[string]error{"bad@x.io": boom}}
		d := newTestDispatcher(10, 10*time.Millisecond)
		recipients := []string{"a@x.io", "bad@x.io", "c@x.io"}

		result := d.dispatch(ctx, tr, msg, recipients)
		if result.Attempted() != 3 {
			t.Errorf("attempted = %d, want 3", result.Attempted())
		}
		if result.Failed() != 1 {
			t.Errorf("failed = %d, want 1", result.Failed())
		}
		failed := result.FailedAddresses()
		if len(failed) != 1 || failed[0] != "bad@x.io" {
			t.Errorf("failed addresses = %v", failed)
		}

		var serr *SendError
		for _, o := range result.Outcomes {
			if o.Address == "bad@x.io" {
				if !errors.As(o.Err, &serr) || !errors.Is(o.Err, boom) {
					t.Errorf("outcome error = %v, want SendError wrapping cause", o.Err)
				}
			} else if o.Err != nil {
				t.Errorf("outcome for %s = %v, want success", o.Address, o.Err)
			}
		}
	})

	t.Run("Empty recipient set sends nothing", func(t *testing.T) {
		tr := &recordingTransport{}
		d := newTestDispatcher(2, 100*time.Millisecond)

		result := d.dispatch(ctx, tr, msg, nil)
		if result.Attempted() != 0 {
			t.Errorf("attempted = %d, want 0", result.Attempted())
		}
		if len(tr.recipients()) != 0 {
			t.Errorf("transport saw sends for empty set: %v", tr.recipients())
		}
	})

	t.Run("Recipient receives a personalized copy", func(t *testing.T) {
		var got transport.Message
		var mu sync.Mutex
		tr := transportFunc(func(_ context.Context, m transport.Message) error {
			mu.Lock()
			got = m
			mu.Unlock()
			return nil
		})
		d := newTestDispatcher(2, 10*time.Millisecond)

		base := transport.Message{From: "noreply@x.io", Subject: "hi", Text: "body"}
		d.dispatch(ctx, tr, base, []string{"only@x.io"})

		if got.To != "only@x.io" {
			t.Errorf("To = %q, want %q", got.To, "only@x.io")
		}
		if got.From != base.From || got.Subject != base.Subject || got.Text != base.Text {
			t.Errorf("message fields not carried over: %+v", got)
		}
		if base.To != "" {
			t.Errorf("base message mutated: To = %q", base.To)
		}
	})
}

// transportFunc adapts a function to the transport.Transport interface.
type transportFunc func(ctx context.Context, msg transport.Message) error

func (f transportFunc) Name() string { return "func" }

func (f transportFunc) Send(ctx context.Context, msg transport.Message) error {
	return f(ctx, msg)
}
