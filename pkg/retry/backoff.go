package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy computes the delay before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to BackoffStrategy
type BackoffFunc func(attempt int) time.Duration

// NextDelay calls f for attempts above zero
func (f BackoffFunc) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f(attempt)
}

// Constant waits d between every attempt
func Constant(d time.Duration) BackoffStrategy {
	return BackoffFunc(func(int) time.Duration { return d })
}

// ExponentialBackoff doubles (by Multiplier) the delay after every failure,
// caps it at MaxDelay and spreads it by +/- JitterFactor.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff suits search page requests
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	mult := eb.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(eb.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if eb.MaxDelay > 0 {
		delay = math.Min(delay, float64(eb.MaxDelay))
	}
	if eb.JitterFactor > 0 {
		delay *= 1 + eb.JitterFactor*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(delay, 0))
}

// Wait sleeps for delay unless ctx ends first
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
