package adaptive

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"GoModelRouter/pkg/metrics"
)

// Limiter paces outgoing generation calls at BaseLimit scaled by a health
// factor in (0, 1].
type Limiter struct {
	mu                sync.RWMutex
	BaseLimit         float64
	factor            float64
	underlyingLimiter *rate.Limiter
}

// NewLimiter creates a limiter allowing baseLimit calls per second with the
// given burst. A non-positive baseLimit disables pacing.
func NewLimiter(baseLimit float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if baseLimit > 0 {
		limit = rate.Limit(baseLimit)
	}
	metrics.ThrottleFactor.Set(1)
	return &Limiter{
		BaseLimit:         baseLimit,
		factor:            1,
		underlyingLimiter: rate.NewLimiter(limit, burst),
	}
}

// Allow reports whether a call may start now without waiting.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.underlyingLimiter.Allow()
}

// Wait blocks until a call may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	lim := l.underlyingLimiter
	l.mu.RUnlock()
	return lim.Wait(ctx)
}

// UpdateFactor rescales the rate. factor is clamped to (0, 1].
func (l *Limiter) UpdateFactor(factor float64) {
	if factor > 1 || factor <= 0 {
		factor = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.factor = factor
	metrics.ThrottleFactor.Set(factor)
	if l.BaseLimit <= 0 {
		return
	}
	l.underlyingLimiter.SetLimit(rate.Limit(l.BaseLimit * factor))
}

// Factor returns the factor currently applied.
func (l *Limiter) Factor() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.factor
}

// Limit returns the effective calls-per-second limit.
func (l *Limiter) Limit() rate.Limit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.underlyingLimiter.Limit()
}
