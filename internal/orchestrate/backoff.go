package orchestrate

import (
	"math/rand"
	"time"
)

// RetryPolicy holds the retry tuning shared by all orchestration calls.
// It is read-only at runtime; per-call state lives in retryState.
type RetryPolicy struct {
	// MaxAttempts is the standard per-provider attempt budget.
	MaxAttempts int

	// MaxAttemptsExtended replaces MaxAttempts once a provider signals
	// sustained overload (unavailable or rate_limited).
	MaxAttemptsExtended int

	// UnavailableDelays is the fixed wait table used for unavailable
	// classifications. Providers signal sustained overload rather than
	// instantaneous contention, so these waits are much longer than the
	// exponential schedule.
	UnavailableDelays []time.Duration

	// ProviderDelayJitter is the jitter fraction applied on top of a
	// provider-suggested retry delay.
	ProviderDelayJitter float64

	// JitterFraction is the jitter fraction for all other delays.
	JitterFraction float64

	// RequestTimeout bounds each individual provider call.
	RequestTimeout time.Duration
}

// DefaultRetryPolicy returns the standard orchestration retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		MaxAttemptsExtended: 6,
		UnavailableDelays: []time.Duration{
			5 * time.Second,
			15 * time.Second,
			30 * time.Second,
			60 * time.Second,
			120 * time.Second,
			180 * time.Second,
		},
		ProviderDelayJitter: 0.05,
		JitterFraction:      0.2,
		RequestTimeout:      120 * time.Second,
	}
}

// NextDelay computes the wait before the given attempt (1-based). The first
// attempt never waits. Jitter is additive only, so the returned delay is
// always >= the un-jittered base value.
func NextDelay(attempt int, cls *Classification, policy RetryPolicy) time.Duration {
	if attempt <= 1 {
		return 0
	}

	if cls != nil && cls.RetryAfter > 0 {
		return addJitter(cls.RetryAfter, policy.ProviderDelayJitter)
	}

	if cls != nil && cls.Kind == KindUnavailable {
		idx := attempt - 2
		if idx >= len(policy.UnavailableDelays) {
			idx = len(policy.UnavailableDelays) - 1
		}
		return addJitter(policy.UnavailableDelays[idx], policy.JitterFraction)
	}

	// Exponential schedule: 1s, 2s, 4s, ...
	base := time.Second << (attempt - 2)
	return addJitter(base, policy.JitterFraction)
}

func addJitter(base time.Duration, fraction float64) time.Duration {
	if base <= 0 || fraction <= 0 {
		return base
	}
	return base + time.Duration(rand.Float64()*fraction*float64(base))
}
