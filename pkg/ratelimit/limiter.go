// Package ratelimit paces outgoing Wikimedia API requests on the client side.
// Wikimedia asks API consumers to keep a modest request rate; the limiter
// delays each request so a single run stays within that budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikitop_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for the pacing limiter",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wikitop_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the pacing limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)

// DefaultRequestsPerSecond keeps a run well below Wikimedia's published API limits.
const DefaultRequestsPerSecond = 10

// Limiter gates requests to a steady rate.
// A nil *Limiter, or one built with rps <= 0, never blocks.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter allowing rps requests per second with the given burst.
func NewLimiter(rps float64, burst int, logger zerolog.Logger) *Limiter {
	if rps <= 0 {
		return &Limiter{logger: logger}
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Enabled reports whether the limiter actually paces requests.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limiter != nil
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Tokens available immediately come back in well under a millisecond.
	waited := time.Since(start)
	if waited >= time.Millisecond {
		rateLimitWaitsTotal.Inc()
		rateLimitWaitSeconds.Observe(waited.Seconds())
		l.logger.Debug().
			Dur("wait_duration", waited).
			Msg("Request paced by rate limiter")
	}

	return nil
}
