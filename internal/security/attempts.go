// Package security implements PIN hashing, format validation, and the
// in-process attempt limiter that bounds repeated PIN guesses per phone.
//
// This file implements a lightweight, in-memory sliding-window attempt
// limiter with per-identity windows and opportunistic garbage collection.
// Entries are keyed by (identity, action) so PIN confirmation and future
// sensitive actions count independently.
//
// Notes:
//   - This limiter is process-local. Under horizontal scaling only the
//     durable per-session counter is authoritative; this layer is a cheap
//     first line of defense against tight guess loops.
package security

import (
	"sync"
	"time"
)

// AttemptLimiter tracks recent attempts per (identity, action) pair inside a
// sliding time window. It is safe for concurrent use.
type AttemptLimiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
	sweepN   int

	// now is a seam for tests.
	now func() time.Time
}

// NewAttemptLimiter constructs a limiter allowing at most max attempts per
// window for each (identity, action) pair. Values <= 0 are coerced to sane
// minimums.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &AttemptLimiter{
		max:      max,
		window:   window,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records an attempt for (identity, action) and reports whether it is
// within the window budget. The attempt is only recorded when allowed, so a
// rejected caller does not extend its own lockout.
func (l *AttemptLimiter) Allow(identity, action string) bool {
	key := identity + "|" + action
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic sweep of stale keys after a threshold of lookups.
	l.sweepN++
	if l.sweepN >= 5000 {
		for k, ts := range l.attempts {
			if len(ts) == 0 || ts[len(ts)-1].Before(cutoff) {
				delete(l.attempts, k)
			}
		}
		l.sweepN = 0
	}

	recent := prune(l.attempts[key], cutoff)
	if len(recent) >= l.max {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

// Reset clears the window for (identity, action), typically after a
// successful verification.
func (l *AttemptLimiter) Reset(identity, action string) {
	key := identity + "|" + action
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

// prune drops timestamps at or before cutoff, keeping order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
