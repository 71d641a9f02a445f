// Package ratelimit throttles repeated attempts per key.
//
// SlidingWindow keeps its state in process memory: it is reset on restart
// and not shared between instances. Deployments with several instances can
// satisfy Limiter with a shared store instead.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether another attempt for key is allowed right now.
type Limiter interface {
	Allow(key string) bool
}

// SlidingWindow allows at most Limit attempts per key within any Window.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	attempts  map[string][]time.Time
	lastSweep time.Time
}

// NewSlidingWindow creates a limiter allowing limit attempts per window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return NewSlidingWindowWithClock(limit, window, time.Now)
}

// NewSlidingWindowWithClock is NewSlidingWindow with an injectable clock.
func NewSlidingWindowWithClock(limit int, window time.Duration, now func() time.Time) *SlidingWindow {
	return &SlidingWindow{
		limit:    limit,
		window:   window,
		now:      now,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit. Rejected attempts are not recorded.
func (l *SlidingWindow) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.window {
		l.sweep(now)
	}

	recent := prune(l.attempts[key], now.Add(-l.window))
	if len(recent) >= l.limit {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

// sweep drops keys whose attempts all fell out of the window.
func (l *SlidingWindow) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, times := range l.attempts {
		if recent := prune(times, cutoff); len(recent) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = recent
		}
	}
	l.lastSweep = now
}

// prune returns the attempts strictly after cutoff. times is ordered.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
