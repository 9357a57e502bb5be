package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_Disabled(t *testing.T) {
	tests := []struct {
		name    string
		rps     float64
		enabled bool
	}{
		{name: "zero rps", rps: 0, enabled: false},
		{name: "negative rps", rps: -1, enabled: false},
		{name: "positive rps", rps: 5, enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rps, 1, zerolog.Nop())
			assert.Equal(t, tt.enabled, l.Enabled())
		})
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var l *Limiter
	assert.False(t, l.Enabled())
	assert.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_Paces(t *testing.T) {
	// 20 req/s with burst 1: the third call waits for roughly two intervals.
	l := NewLimiter(20, 1, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "limiter should delay requests")
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := NewLimiter(0.001, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	// First token is available from the burst.
	require.NoError(t, l.Wait(ctx))

	cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
