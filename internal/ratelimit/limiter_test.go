package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunarlash/leadline/internal/store"
	"github.com/lunarlash/leadline/pkg/logging"
)

type fakeWindowStore struct {
	windows map[string]*store.Window
	getErr  error
	putErr  error
	puts    int
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{windows: make(map[string]*store.Window)}
}

func (f *fakeWindowStore) GetWindow(_ context.Context, source string) (*store.Window, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.windows[source], nil
}

func (f *fakeWindowStore) PutWindow(_ context.Context, source string, w *store.Window) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.windows[source] = w
	return nil
}

func testLimiter(ws WindowStore, now time.Time) (*SlidingWindow, *time.Time) {
	clock := now
	l := NewSlidingWindow(ws, 10*time.Minute, 3, logging.Default())
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestSlidingWindowAdmitsUpToMax(t *testing.T) {
	ws := newFakeWindowStore()
	l, clock := testLimiter(ws, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		*clock = clock.Add(time.Minute)
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	*clock = clock.Add(time.Minute)
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("fourth request inside the window should be rejected")
	}
	if w := ws.windows["1.2.3.4"]; w.Count != 3 {
		t.Fatalf("persisted count = %d, want 3", w.Count)
	}
}

func TestSlidingWindowResetsAfterExpiry(t *testing.T) {
	ws := newFakeWindowStore()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l, clock := testLimiter(ws, start)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("expected rejection at the cap")
	}

	*clock = start.Add(11 * time.Minute)
	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("request after window expiry should start a fresh window")
	}
	w := ws.windows["1.2.3.4"]
	if w.Count != 1 {
		t.Fatalf("fresh window count = %d, want 1", w.Count)
	}
	if !w.WindowStartAt.Equal(*clock) {
		t.Fatalf("fresh window start = %v, want %v", w.WindowStartAt, *clock)
	}
}

func TestSlidingWindowIndependentSources(t *testing.T) {
	ws := newFakeWindowStore()
	l, _ := testLimiter(ws, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, "1.2.3.4")
	}
	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("expected saturated source to be rejected")
	}
	if !l.Allow(ctx, "5.6.7.8") {
		t.Fatal("expected other source to be unaffected")
	}
}

func TestSlidingWindowFailsOpen(t *testing.T) {
	ctx := context.Background()

	readBroken := newFakeWindowStore()
	readBroken.getErr = errors.New("dynamo down")
	l, _ := testLimiter(readBroken, time.Now())
	if !l.Allow(ctx, "1.2.3.4") {
		t.Fatal("read failure must admit the request")
	}

	writeBroken := newFakeWindowStore()
	writeBroken.putErr = errors.New("dynamo down")
	l, _ = testLimiter(writeBroken, time.Now())
	for i := 0; i < 10; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatal("write failure must admit the request")
		}
	}
}

func TestSlidingWindowSkipsEmptySource(t *testing.T) {
	ws := newFakeWindowStore()
	l, _ := testLimiter(ws, time.Now())
	for i := 0; i < 10; i++ {
		if !l.Allow(context.Background(), "") {
			t.Fatal("empty source must skip rate limiting")
		}
	}
	if ws.puts != 0 {
		t.Fatalf("expected no window writes for empty source, got %d", ws.puts)
	}
}
