package ratelimit

import (
	"context"
	"time"

	"github.com/lunarlash/leadline/internal/store"
	"github.com/lunarlash/leadline/pkg/logging"
)

// Defaults for the submission window.
const (
	DefaultWindow      = 10 * time.Minute
	DefaultMaxRequests = 3
)

// Limiter decides whether a submission attempt from a source is admitted.
// Implementations are strictly best-effort: infrastructure failures admit
// the request rather than blocking it.
type Limiter interface {
	Allow(ctx context.Context, source string) bool
}

// WindowStore persists one window record per source.
type WindowStore interface {
	GetWindow(ctx context.Context, source string) (*store.Window, error)
	PutWindow(ctx context.Context, source string, w *store.Window) error
}

// SlidingWindow counts submissions per source against a persisted window
// record. The read-then-write is not atomic; under concurrent bursts from
// one source the admitted count can slightly exceed the nominal limit, which
// is an accepted weak guarantee.
type SlidingWindow struct {
	store  WindowStore
	window time.Duration
	max    int
	logger *logging.Logger
	now    func() time.Time
}

// NewSlidingWindow builds a limiter over the given window store.
func NewSlidingWindow(ws WindowStore, window time.Duration, max int, logger *logging.Logger) *SlidingWindow {
	if ws == nil {
		panic("ratelimit: window store cannot be nil")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlidingWindow{
		store:  ws,
		window: window,
		max:    max,
		logger: logger,
		now:    time.Now,
	}
}

var _ Limiter = (*SlidingWindow)(nil)

// Allow admits or rejects one submission attempt. An empty source skips rate
// limiting entirely, and any store failure fails open.
func (l *SlidingWindow) Allow(ctx context.Context, source string) bool {
	if source == "" {
		return true
	}

	w, err := l.store.GetWindow(ctx, source)
	if err != nil {
		l.logger.Warn("ratelimit: window read failed, admitting", "source", source, "error", err)
		return true
	}

	now := l.now()
	count := 0
	start := now
	if w != nil && !now.After(w.WindowStartAt.Add(l.window)) {
		count = w.Count
		start = w.WindowStartAt
		if count >= l.max {
			return false
		}
	}

	updated := &store.Window{
		WindowStartAt: start,
		Count:         count + 1,
		LastSubmitAt:  now,
	}
	if err := l.store.PutWindow(ctx, source, updated); err != nil {
		l.logger.Warn("ratelimit: window write failed, admitting", "source", source, "error", err)
	}
	return true
}
