package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/config"
	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			delay := backoff.NextDelay(test.attempt)
			if delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		Backoff:     Constant(time.Millisecond),
		RetryIf:     func(err error) bool { return true },
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhausted(t *testing.T) {
	attempts := 0
	cause := errors.New("persistent error")
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, attempts)
}

func TestRetryNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := errs.FromStatus(404, "search page")

	cfg := fastConfig(5)
	cfg.RetryIf = DefaultRetryIf

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return notFound
	})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := fastConfig(5)
	cfg.Backoff = Constant(time.Second)

	err := Do(ctx, cfg, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("error")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errs.FromStatus(503, "x")))
	assert.True(t, DefaultRetryIf(errs.FromStatus(429, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeValidation, "x")))
	assert.True(t, DefaultRetryIf(errors.New("connection reset")))
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}
	cfg.Logger = logger.NewTestLogger()

	_ = Do(context.Background(), cfg, func(ctx context.Context) error { return errors.New("x") })

	assert.Equal(t, []int{1, 2}, seen)
	assert.Len(t, cfg.Logger.(*logger.TestLogger).GetMessagesByLevel("WARN"), 2)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestFromConfig(t *testing.T) {
	rc := config.DefaultConfig().Retry
	cfg := FromConfig(rc, nil)
	assert.Equal(t, rc.MaxAttempts, cfg.MaxAttempts)

	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, rc.BaseDelay, eb.BaseDelay)

	rc.Enabled = false
	assert.Equal(t, 1, FromConfig(rc, nil).MaxAttempts)
}
