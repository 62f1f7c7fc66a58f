package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIWikipedia represents the Wikipedia constituents page
	APIWikipedia API = "wikipedia"
	// APIYahoo represents Yahoo Finance (HTML pages and JSON endpoints)
	APIYahoo API = "yahoo"
	// APIAlphaVantage represents the AlphaVantage API
	APIAlphaVantage API = "alphavantage"
)

// Limit describes the pacing of one API: Rate events per second with room
// for Burst back-to-back events.
type Limit struct {
	Rate  float64
	Burst int
}

// Limiter manages rate limits for different APIs.
// A nil *Limiter permits everything.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with one token bucket per configured API.
// A non-positive rate means unlimited.
func New(limits map[API]Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter, len(limits)),
	}
	for api, lim := range limits {
		l.Set(api, lim)
	}
	return l
}

// Unlimited returns a limiter that never blocks, for tests and local runs
func Unlimited() *Limiter {
	return New(map[API]Limit{
		APIWikipedia:    {},
		APIYahoo:        {},
		APIAlphaVantage: {},
	})
}

// Set replaces the limit for one API
func (l *Limiter) Set(api API, lim Limit) {
	burst := lim.Burst
	if burst < 1 {
		burst = 1
	}
	r := rate.Inf
	if lim.Rate > 0 {
		r = rate.Limit(lim.Rate)
	}

	l.mu.Lock()
	l.limiters[api] = rate.NewLimiter(r, burst)
	l.mu.Unlock()
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return ctx.Err()
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return ctx.Err()
	}

	return limiter.Wait(ctx)
}
