package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roleplay-insights-go/internal/types"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestRateLimitSchedule(t *testing.T) {
	p := RateLimit()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 16*time.Second, p.Delay(4))
}

func TestJitterBounded(t *testing.T) {
	b := &policyBackOff{p: RateLimit()}
	for i := 1; i < 5; i++ {
		d := b.NextBackOff()
		base := b.p.Delay(i)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+time.Second)
	}
	assert.Equal(t, time.Duration(-1), b.NextBackOff())
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("gateway: %w", types.ErrRateLimited)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustion(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, types.ErrRateLimited
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRateLimited)
	assert.Equal(t, 5, calls)
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoCustomRetryable(t *testing.T) {
	flaky := errors.New("flaky")
	p := fastPolicy(3)
	p.Retryable = func(err error) bool { return errors.Is(err, flaky) }

	calls := 0
	_, err := Do(context.Background(), p, nil, func(context.Context) (int, error) {
		calls++
		return 0, flaky
	})
	assert.ErrorIs(t, err, flaky)
	assert.Equal(t, 3, calls)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}, nil, func(context.Context) (int, error) {
		calls++
		return 0, types.ErrRateLimited
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
