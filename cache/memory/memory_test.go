package memory

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c := New()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set(ctx, "k", []string{"a@x", "b@x"}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	vals, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(vals, []string{"a@x", "b@x"}) {
		t.Errorf("unexpected value: %v", vals)
	}
}

func TestEmptyValueIsAHit(t *testing.T) {
	ctx := context.Background()
	c := New()

	if err := c.Set(ctx, "empty", []string{}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	vals, ok, err := c.Get(ctx, "empty")
	if err != nil || !ok {
		t.Fatalf("expected hit for cached empty value, got ok=%v err=%v", ok, err)
	}
	if len(vals) != 0 {
		t.Errorf("expected empty value, got %v", vals)
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := New()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []string{"a@x"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, have %d", c.Len())
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := New()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []string{"a@x"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(1000 * time.Hour)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("expected entry without TTL to persist")
	}
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	c := New()

	src := []string{"a@x"}
	if err := c.Set(ctx, "k", src, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	src[0] = "mutated"

	vals, _, _ := c.Get(ctx, "k")
	if vals[0] != "a@x" {
		t.Error("cache shares backing array with caller")
	}

	vals[0] = "mutated-again"
	vals2, _, _ := c.Get(ctx, "k")
	if vals2[0] != "a@x" {
		t.Error("cache returns shared backing array")
	}
}
