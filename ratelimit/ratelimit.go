// Package ratelimit implements the per-source token bucket with
// exponential backoff from §4.2. Steady-state admission rides on
// golang.org/x/time/rate; the backoff state machine on top is this
// package's own, since x/time/rate has no notion of "this source just
// failed, slow everyone down."
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Status is the snapshot returned by a status query.
type Status struct {
	RecentRequests    int
	RemainingRequests int
	BackoffDelay      time.Duration
	Throttled         bool
}

// Limiter is a single per-source rate limiter. Uses in-memory state by
// default; attach a RedisWindow via SetSharedWindow for multi-process
// deployments that must share one rolling window per source.
type Limiter struct {
	mu sync.Mutex

	rpm   int
	burst int

	bucket *rate.Limiter
	window []time.Time // admitted timestamps, last minute
	shared *RedisWindow

	backoff       time.Duration
	maxBackoff    time.Duration
	multiplier    float64
}

// New creates a Limiter admitting at most rpm requests per rolling
// minute, with burst (default rpm when 0).
func New(rpm int, burst int) *Limiter {
	if burst <= 0 {
		burst = rpm
	}
	return &Limiter{
		rpm:        rpm,
		burst:      burst,
		bucket:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		maxBackoff: 60 * time.Second,
		multiplier: 2,
	}
}

// SetSharedWindow attaches a Redis-backed shared window so admission
// is additionally bounded by a fleet-wide count, not just this
// process's local window. Optional — nil (the default) keeps
// admission local-only.
func (l *Limiter) SetSharedWindow(w *RedisWindow) {
	l.mu.Lock()
	l.shared = w
	l.mu.Unlock()
}

// Wait blocks the caller until an admission slot is available under
// both the rolling window and any active backoff, then returns. The
// caller still must report Success or Failure once the attempt
// resolves.
func (l *Limiter) Wait() {
	l.mu.Lock()
	backoff := l.backoff
	l.mu.Unlock()
	if backoff > 0 {
		time.Sleep(backoff)
	}

	// Smooth bursts against the per-second rate before the hard rolling
	// window check below, which is the actual RPM invariant.
	_ = l.bucket.Wait(context.Background())

	now := time.Now()
	l.mu.Lock()
	l.pruneLocked(now)
	for len(l.window) >= l.rpm {
		wait := l.window[0].Add(time.Minute).Sub(now)
		l.mu.Unlock()
		if wait > 0 {
			time.Sleep(wait)
		}
		now = time.Now()
		l.mu.Lock()
		l.pruneLocked(now)
	}
	l.window = append(l.window, now)
	shared := l.shared
	l.mu.Unlock()

	for shared != nil && !shared.Admit(context.Background()) {
		time.Sleep(time.Second)
	}
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for ; i < len(l.window); i++ {
		if l.window[i].After(cutoff) {
			break
		}
	}
	l.window = l.window[i:]
}

// Success halves the current backoff delay (floor 0).
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = l.backoff / 2
	if l.backoff < 0 {
		l.backoff = 0
	}
}

// Failure raises the backoff delay: min(maxBackoff, max(1s, backoff*multiplier)).
func (l *Limiter) Failure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := time.Duration(float64(l.backoff) * l.multiplier)
	if next < time.Second {
		next = time.Second
	}
	if next > l.maxBackoff {
		next = l.maxBackoff
	}
	l.backoff = next
}

// StatusQuery returns the current admission state.
func (l *Limiter) StatusQuery() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(time.Now())
	remaining := l.rpm - len(l.window)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		RecentRequests:    len(l.window),
		RemainingRequests: remaining,
		BackoffDelay:      l.backoff,
		Throttled:         l.backoff > 0,
	}
}
