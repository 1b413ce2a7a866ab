package redis

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "all-broadcast-users", []string{"a@x", "b@x"}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	vals, ok, err := c.Get(ctx, "all-broadcast-users")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(vals, []string{"a@x", "b@x"}) {
		t.Errorf("unexpected value: %v", vals)
	}
}

func TestNegativeCaching(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	if err := c.Set(ctx, "user-without-email", nil, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	vals, ok, err := c.Get(ctx, "user-without-email")
	if err != nil || !ok {
		t.Fatalf("expected hit for cached empty set, got ok=%v err=%v", ok, err)
	}
	if len(vals) != 0 {
		t.Errorf("expected empty set, got %v", vals)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	if err := c.Set(ctx, "k", []string{"a@x"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestKeyPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := New(client, WithKeyPrefix("notif:"))
	if err := c.Set(ctx, "k", []string{"a@x"}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("notif:k") {
		t.Error("expected prefixed key in redis")
	}
}

func TestCorruptValueIsAnError(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	mr.Set(DefaultKeyPrefix+"bad", "{not json")
	if _, _, err := c.Get(ctx, "bad"); err == nil {
		t.Error("expected decode error for corrupt value")
	}
}
