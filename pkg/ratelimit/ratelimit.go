// Package ratelimit paces calls to a remote API that enforces a fixed
// number of requests per time window.
//
// Example usage:
//
//	lim := ratelimit.New(5, 5*time.Second)
//	for _, guildID := range guilds {
//	    if err := lim.Wait(ctx); err != nil {
//	        return err
//	    }
//	    callAPI(guildID)
//	}
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket holding quota tokens that refill evenly over
// window. Callers block in Wait until a token is free. Thread-safe.
type Limiter struct {
	limiter *rate.Limiter
	quota   int
	window  time.Duration

	mu     sync.Mutex
	calls  int
	waited time.Duration
}

// New creates a Limiter allowing quota calls per window. Non-positive
// arguments fall back to one call per second.
func New(quota int, window time.Duration) *Limiter {
	if quota < 1 {
		quota = 1
	}
	if window <= 0 {
		window = time.Second * time.Duration(quota)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(quota)), quota),
		quota:   quota,
		window:  window,
	}
}

// Wait blocks until a slot is available or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.calls++
	l.waited += time.Since(start)
	l.mu.Unlock()
	return nil
}

// Stats reports how many slots were granted and the total time spent waiting.
func (l *Limiter) Stats() (calls int, waited time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls, l.waited
}

func (l *Limiter) Quota() int { return l.quota }

func (l *Limiter) Window() time.Duration { return l.window }

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// IsRateLimited reports whether err (or anything it wraps) is an HTTP 429.
func IsRateLimited(err error) bool {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == http.StatusTooManyRequests
	}
	return false
}
