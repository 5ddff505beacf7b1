// Package budget limits how often operators may trigger manual publishes.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/cadence/errors"
)

// ErrRateLimited is returned when the window is full.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter enforces max calls per minute using a sliding window. A limit of
// zero or less allows every call.
type Limiter struct {
	limit     int
	window    time.Duration
	mu        sync.Mutex
	callTimes []time.Time
	timeNow   func() time.Time
}

// NewLimiter creates a limiter with real time
func NewLimiter(perMinute int) *Limiter {
	return NewLimiterWithClock(perMinute, time.Now)
}

// NewLimiterWithClock creates a limiter with an injectable clock
func NewLimiterWithClock(perMinute int, timeNow func() time.Time) *Limiter {
	capacity := perMinute
	if capacity < 0 {
		capacity = 0
	}
	return &Limiter{
		limit:     perMinute,
		window:    time.Minute,
		callTimes: make([]time.Time, 0, capacity),
		timeNow:   timeNow,
	}
}

// Allow records a call, or returns ErrRateLimited with the time until a
// slot frees up as a hint.
func (r *Limiter) Allow() error {
	if r.limit <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timeNow()
	r.removeExpiredCalls(now)

	if len(r.callTimes) >= r.limit {
		retryIn := r.callTimes[0].Add(r.window).Sub(now).Round(time.Second)
		err := errors.Wrapf(ErrRateLimited, "%d calls in the last minute (limit: %d)", len(r.callTimes), r.limit)
		return errors.WithHintf(err, "retry in %s", retryIn)
	}

	r.callTimes = append(r.callTimes, now)
	return nil
}

// Wait blocks until a call is allowed or ctx ends.
func (r *Limiter) Wait(ctx context.Context) error {
	for {
		if err := r.Allow(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// removeExpiredCalls drops timestamps outside the window. Caller holds r.mu.
func (r *Limiter) removeExpiredCalls(now time.Time) {
	cutoff := now.Add(-r.window)

	expired := 0
	for _, callTime := range r.callTimes {
		if callTime.After(cutoff) {
			break
		}
		expired++
	}
	r.callTimes = r.callTimes[expired:]
}

// Reset clears the window
func (r *Limiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callTimes = r.callTimes[:0]
}

// Stats returns calls in the current window and remaining capacity.
// Remaining is -1 when unlimited.
func (r *Limiter) Stats() (callsInWindow int, remaining int) {
	if r.limit <= 0 {
		return 0, -1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeExpiredCalls(r.timeNow())
	callsInWindow = len(r.callTimes)
	remaining = r.limit - callsInWindow
	if remaining < 0 {
		remaining = 0
	}
	return callsInWindow, remaining
}
