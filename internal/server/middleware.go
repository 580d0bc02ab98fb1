package server

import (
	"sync"
	"time"
)

// RateLimiter caps how many commands a single connection may submit per
// sliding window, so one abusive client cannot starve the dispatcher.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // connectionID → recent timestamps
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow reports whether the connection may submit another command now.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	recent := r.requests[connectionID][:0]
	for _, ts := range r.requests[connectionID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.maxRequests {
		r.requests[connectionID] = recent
		return false
	}

	r.requests[connectionID] = append(recent, now)
	return true
}

// Forget drops the bookkeeping for a closed connection.
func (r *RateLimiter) Forget(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}
