package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/amqp"
)

type fakeWarmer struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]bool
}

func (f *fakeWarmer) WarmCache(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	if f.fail[userID] {
		return errors.New("ledger unreachable")
	}
	return nil
}

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestWorker(f *fakeWarmer) (*WarmWorker, *stepClock) {
	clock := &stepClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	w := NewWarmWorker(f)
	w.now = clock.now
	return w, clock
}

func TestHandleWarmMessage(t *testing.T) {
	f := &fakeWarmer{}
	w, clock := newTestWorker(f)
	ctx := context.Background()

	published := clock.t
	if err := w.HandleWarmMessage(ctx, &amqp.CacheWarmMessage{UserID: 7, Timestamp: published}); err != nil {
		t.Fatal(err)
	}
	// Published before the warm above started: already covered.
	if err := w.HandleWarmMessage(ctx, &amqp.CacheWarmMessage{UserID: 7, Timestamp: published}); err != nil {
		t.Fatal(err)
	}
	// Published after it: must run.
	if err := w.HandleWarmMessage(ctx, &amqp.CacheWarmMessage{UserID: 7, Timestamp: clock.t.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	// Other users are independent.
	if err := w.HandleWarmMessage(ctx, &amqp.CacheWarmMessage{UserID: 8, Timestamp: published}); err != nil {
		t.Fatal(err)
	}

	if len(f.calls) != 3 || f.calls[0] != 7 || f.calls[1] != 7 || f.calls[2] != 8 {
		t.Fatalf("unexpected warm calls %v", f.calls)
	}
}

func TestHandleWarmMessageFailureIsRetried(t *testing.T) {
	f := &fakeWarmer{fail: map[int64]bool{3: true}}
	w, clock := newTestWorker(f)
	msg := &amqp.CacheWarmMessage{UserID: 3, Timestamp: clock.t}

	if err := w.HandleWarmMessage(context.Background(), msg); err == nil {
		t.Fatal("expected the warm error to be returned")
	}
	f.fail[3] = false
	if err := w.HandleWarmMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("a failed warm must not suppress the redelivery, got %v", f.calls)
	}
}

func TestHandleWarmMessageDropsInvalid(t *testing.T) {
	f := &fakeWarmer{}
	w, _ := newTestWorker(f)
	if err := w.HandleWarmMessage(context.Background(), &amqp.CacheWarmMessage{}); err != nil {
		t.Fatalf("invalid messages are dropped, not requeued: %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("unexpected calls %v", f.calls)
	}
}

func TestWarmUsers(t *testing.T) {
	f := &fakeWarmer{fail: map[int64]bool{2: true}}
	w, _ := newTestWorker(f)

	if failed := w.WarmUsers(context.Background(), []int64{1, 2, 3}); failed != 1 {
		t.Fatalf("expected one failure, got %d", failed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if failed := w.WarmUsers(ctx, []int64{4, 5}); failed != 2 {
		t.Fatalf("cancelled run should report every user, got %d", failed)
	}
}
