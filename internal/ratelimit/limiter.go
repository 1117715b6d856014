// Package ratelimit gates login and reset/verification attempts.
//
// Limiter instances are injected into whatever handles the request;
// state belongs to the instance, never to the package.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or rejects one attempt for a key. Admit records the
// attempt only when it is allowed, so rejected bursts do not extend the
// penalty window.
type Limiter interface {
	Admit(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int, error)
}

// SlidingWindow keeps per-key attempt timestamps in memory and prunes
// them on every call. Suitable for single-instance deployments; use
// RedisLimiter when limits must hold across instances.
type SlidingWindow struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time
	now         func() time.Time
}

func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (l *SlidingWindow) Admit(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.prune(key, now)
	if len(kept) >= l.maxRequests {
		l.requests[key] = kept
		return false, nil
	}
	l.requests[key] = append(kept, now)
	return true, nil
}

func (l *SlidingWindow) Remaining(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, l.now())
	l.requests[key] = kept
	if rem := l.maxRequests - len(kept); rem > 0 {
		return rem, nil
	}
	return 0, nil
}

// prune drops entries older than now-window and deletes empty keys so
// the map does not grow with one-off clients.
func (l *SlidingWindow) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.requests[key]
	kept := entries[:0]
	for _, at := range entries {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(l.requests, key)
		return nil
	}
	return kept
}
