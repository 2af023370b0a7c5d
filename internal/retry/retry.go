package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// Policy is an exponential retry schedule with additive jitter.
// Delay before attempt n+1 is BaseDelay*Multiplier^(n-1) + U[0, MaxJitter).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxJitter   time.Duration

	// Retryable decides which errors are worth another attempt.
	// Nil means only rate-limit errors are retried.
	Retryable func(error) bool
}

// RateLimit is the schedule used for model throttling.
func RateLimit() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
		MaxJitter:   time.Second,
	}
}

// Delay returns the wait before the given retry (1-based), without jitter.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(retry-1)))
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return errors.Is(err, types.ErrRateLimited)
}

// policyBackOff adapts Policy to backoff.BackOff.
type policyBackOff struct {
	p       Policy
	retries int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.retries++
	if b.retries >= b.p.MaxAttempts {
		return backoff.Stop
	}
	d := b.p.Delay(b.retries)
	if b.p.MaxJitter > 0 {
		d += time.Duration(rand.Int64N(int64(b.p.MaxJitter)))
	}
	return d
}

func (b *policyBackOff) Reset() { b.retries = 0 }

// Do runs op until it succeeds, returns a non-retryable error, the context
// ends, or MaxAttempts is reached. The last error is returned on exhaustion.
func Do[T any](ctx context.Context, p Policy, log *logger.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if log == nil {
		log = logger.Discard()
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !p.retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).
			WithField("attempt", attempt).
			WithField("wait_ms", wait.Milliseconds()).
			Warn("retrying after error")
	}

	b := backoff.WithContext(&policyBackOff{p: p}, ctx)
	return backoff.RetryNotifyWithData(wrapped, b, notify)
}
