package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/resilience"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "resend", MinRequests: 2, FailureRatio: 0.5, OpenFor: 50 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.NoError(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	err := breaker.Allow(ctx)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit, "breaker should open after threshold exceeded")
	var openErr *resilience.OpenError
	require.True(t, errors.As(err, &openErr))
	require.Equal(t, "resend", openErr.Target)
	require.Positive(t, openErr.RetryIn)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, breaker.Allow(ctx), "cool-off over, one trial delivery allowed")
	require.ErrorIs(t, breaker.Allow(ctx), resilience.ErrOpenCircuit, "only one trial at a time")
	breaker.Report(ctx, true)
	require.NoError(t, breaker.Allow(ctx), "breaker should close after a successful trial")
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, FailureRatio: 1, OpenFor: 20 * time.Millisecond})
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.ErrorIs(t, breaker.Allow(ctx), resilience.ErrOpenCircuit)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.ErrorIs(t, breaker.Allow(ctx), resilience.ErrOpenCircuit)
}

func TestBreakerJudgesRecentOutcomes(t *testing.T) {
	// window of 8 outcomes, opens at 50% failures once 4 were seen
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 4, FailureRatio: 0.5, OpenFor: time.Minute})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		breaker.Report(ctx, true)
	}
	for i := 0; i < 3; i++ {
		breaker.Report(ctx, false)
	}
	require.NoError(t, breaker.Allow(ctx), "3 failures in the last 8")

	breaker.Report(ctx, false)
	require.ErrorIs(t, breaker.Allow(ctx), resilience.ErrOpenCircuit, "4 failures in the last 8")
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-base*2/5)
	require.LessOrEqual(t, d, base*2+base*2/5)
}
