// SPDX-License-Identifier: GPL-3.0-only

// Package ratelimit implements a process-local sliding-window request
// throttle. The window is best-effort state: it is not persisted and
// resets on restart. Identifiers that stop sending requests keep their
// (empty) map entry for the process lifetime; this is a known trade-off.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

func New() *Limiter {
	return &Limiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Check prunes the identifier's window and admits the request only while
// the remaining count is below limit. A caller exactly at the limit is
// rejected, and rejected attempts are not recorded. The prune-count-append
// sequence runs under the mutex so concurrent checks can neither corrupt
// the window nor admit more than limit requests.
func (l *Limiter) Check(identifier string, limit int, window time.Duration) bool {
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.requests[identifier][:0]
	for _, instant := range l.requests[identifier] {
		if instant.After(cutoff) {
			kept = append(kept, instant)
		}
	}

	if len(kept) >= limit {
		l.requests[identifier] = kept
		return false
	}

	l.requests[identifier] = append(kept, now)
	return true
}
