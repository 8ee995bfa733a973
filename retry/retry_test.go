package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fastPolicy(delays *[]time.Duration) Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     30 * time.Millisecond,
		Multiplier:   2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			*delays = append(*delays, delay)
		},
	}
}

func TestRetry(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"backoff grows and is capped":    testBackoffGrowth,
		"permanent error is not retried": testPermanent,
		"exhaustion annotates context":   testExhaustion,
		"cancelled context stops retry":  testCancelled,
		"value is returned on success":   testDoValue,
	} {
		t.Run(scenario, fn)
	}
}

func testBackoffGrowth(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), "flaky-op", fastPolicy(&delays), func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, delays)
}

func testPermanent(t *testing.T) {
	var delays []time.Duration
	calls := 0
	notFound := errors.New("not found")
	err := Do(context.Background(), "captions", fastPolicy(&delays), func(ctx context.Context) error {
		calls++
		return Permanent(notFound)
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, delays)
	require.ErrorIs(t, err, notFound)
}

func testExhaustion(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), "scraper", fastPolicy(&delays), func(ctx context.Context) error {
		calls++
		return errFlaky
	})
	require.Error(t, err)
	require.Equal(t, 4, calls)
	require.ErrorIs(t, err, errFlaky)
	var retryErr *Error
	require.True(t, errors.As(err, &retryErr))
	require.Equal(t, "scraper", retryErr.Context)
	require.Equal(t, 4, retryErr.Attempts)
	require.Contains(t, err.Error(), "scraper")
}

func testCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := DefaultPolicy()
	calls := 0
	err := Do(ctx, "cancelled", policy, func(ctx context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func testDoValue(t *testing.T) {
	var delays []time.Duration
	calls := 0
	v, err := DoValue(context.Background(), "value", fastPolicy(&delays), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFlaky
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Len(t, delays, 1)
}
