package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ledger/internal/core"
)

func newTestRedis(t *testing.T, scanCount int64) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, scanCount)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreBasics(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t, 10)

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := s.Get(ctx, "k"); !ok || err != nil || string(v) != "v" {
		t.Fatalf("unexpected get %q %v %v", v, ok, err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected expiry")
	}
}

func TestRedisPatternDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedis(t, 7)
	m := NewManager(s, Options{DeleteBatch: 5, Logger: nopLogger()})

	for i := 0; i < 23; i++ {
		_ = m.Set(ctx, AnalyticsKey(4, "summary", Params{}.Set("n", fmt.Sprint(i))), core.Statistics{})
	}
	_ = m.Set(ctx, AnalyticsKey(42, "summary", nil), core.Statistics{})
	_ = m.Set(ctx, CategoriesKey(""), []core.Category{})

	n, err := m.DeleteByPattern(ctx, UserAnalyticsPattern(4))
	if err != nil {
		t.Fatal(err)
	}
	if n != 23 {
		t.Fatalf("expected 23 deleted, got %d", n)
	}
	left, err := s.KeysMatching(ctx, "*")
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Fatalf("expected 2 keys left, got %v", left)
	}
}

func TestRedisOutageFailsOpen(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t, 10)
	m := NewManager(s, Options{OpTimeout: 200 * time.Millisecond, Logger: nopLogger()})
	mr.Close()

	var dst core.Statistics
	if m.Get(ctx, AnalyticsKey(1, "summary", nil), &dst) {
		t.Fatal("expected miss while redis is down")
	}
	if m.Metrics().Errors != 1 {
		t.Fatalf("expected one error, got %+v", m.Metrics())
	}
}
