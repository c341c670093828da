// Package abuse implements the per-client-address request governor: a
// trailing sliding window shared by a hard limiter and a progressive
// delay, evaluated once per request before planning starts.
package abuse

import (
	"context"
	"sync"
	"time"
)

const (
	defaultWindow    = 60 * time.Second
	defaultSoftLimit = 30
	defaultHardLimit = 40
	defaultDelayStep = 500 * time.Millisecond

	cleanupInterval = 2 * time.Minute
)

// Decision is the governor's verdict for one request.
type Decision struct {
	// Allowed is false once the address exceeds the hard limit.
	Allowed bool
	// Delay is the backpressure hold to apply before planning. Zero
	// until the soft limit is exceeded.
	Delay time.Duration
	// Observed counts requests from this address inside the window,
	// including the current one.
	Observed int
	// Remaining is how many requests the address has left before the
	// hard limiter fires.
	Remaining int
	// RetryAfter hints when the window next frees a slot. Only set on
	// rejection.
	RetryAfter time.Duration
}

type window struct {
	stamps []time.Time
}

// Governor tracks request timestamps per client address. Windows are
// created lazily and evicted by a periodic cleanup once idle.
type Governor struct {
	mu      sync.Mutex
	windows map[string]*window

	span      time.Duration
	softLimit int
	hardLimit int
	delayStep time.Duration
}

type Option func(*Governor)

func WithWindow(span time.Duration) Option {
	return func(g *Governor) {
		if span > 0 {
			g.span = span
		}
	}
}

func WithLimits(soft, hard int) Option {
	return func(g *Governor) {
		if soft > 0 {
			g.softLimit = soft
		}
		if hard > 0 {
			g.hardLimit = hard
		}
	}
}

func WithDelayStep(step time.Duration) Option {
	return func(g *Governor) {
		if step > 0 {
			g.delayStep = step
		}
	}
}

func New(options ...Option) *Governor {
	governor := &Governor{
		windows:   make(map[string]*window),
		span:      defaultWindow,
		softLimit: defaultSoftLimit,
		hardLimit: defaultHardLimit,
		delayStep: defaultDelayStep,
	}
	for _, option := range options {
		if option != nil {
			option(governor)
		}
	}
	return governor
}

// Observe records one request from addr and decides its fate. The
// increment is atomic with respect to concurrent requests from the
// same address.
func (g *Governor) Observe(addr string, now time.Time) Decision {
	cutoff := now.Add(-g.span)

	g.mu.Lock()
	defer g.mu.Unlock()

	win, ok := g.windows[addr]
	if !ok {
		win = &window{}
		g.windows[addr] = win
	}

	// Roll the window forward before counting the current request.
	kept := win.stamps[:0]
	for _, stamp := range win.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	win.stamps = append(kept, now)

	observed := len(win.stamps)
	decision := Decision{
		Allowed:   true,
		Observed:  observed,
		Remaining: g.hardLimit - observed,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	if observed > g.hardLimit {
		decision.Allowed = false
		decision.RetryAfter = win.stamps[0].Add(g.span).Sub(now)
		if decision.RetryAfter < 0 {
			decision.RetryAfter = 0
		}
		return decision
	}
	if observed > g.softLimit {
		decision.Delay = time.Duration(observed-g.softLimit) * g.delayStep
	}
	return decision
}

// StartCleanup evicts windows whose every timestamp has aged out. It
// returns immediately; eviction stops when ctx is cancelled.
func (g *Governor) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.cleanup(time.Now())
			}
		}
	}()
}

func (g *Governor) cleanup(now time.Time) {
	cutoff := now.Add(-g.span)

	g.mu.Lock()
	defer g.mu.Unlock()
	for addr, win := range g.windows {
		idle := true
		for _, stamp := range win.stamps {
			if stamp.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(g.windows, addr)
		}
	}
}
