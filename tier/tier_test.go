package tier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingTier struct {
	name       string
	configured bool
	out        string
	err        error
	calls      int
}

func (c *countingTier) Name() string    { return c.name }
func (c *countingTier) Available() bool { return c.configured }
func (c *countingTier) Attempt(ctx context.Context, input string) (string, error) {
	c.calls++
	return c.out, c.err
}

func TestFirstSuccessStopsAtFirstWinner(t *testing.T) {
	first := &countingTier{name: "first", configured: true, out: "one"}
	second := &countingTier{name: "second", configured: true, out: "two"}
	out, name, err := FirstSuccess[string, string](context.Background(), "test", []Tier[string, string]{first, second}, "in")
	require.NoError(t, err)
	require.Equal(t, "one", out)
	require.Equal(t, "first", name)
	require.Equal(t, 0, second.calls)
}

func TestFirstSuccessSkipsUnconfigured(t *testing.T) {
	missing := &countingTier{name: "missing", configured: false, out: "never"}
	failing := &countingTier{name: "failing", configured: true, err: errors.New("boom")}
	winner := &countingTier{name: "winner", configured: true, out: "ok"}
	out, name, err := FirstSuccess[string, string](context.Background(), "test", []Tier[string, string]{missing, failing, winner}, "in")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, "winner", name)
	require.Equal(t, 0, missing.calls)
	require.Equal(t, 1, failing.calls)
}

func TestFirstSuccessAggregatesFailures(t *testing.T) {
	errA := errors.New("captions missing")
	errB := errors.New("blocked")
	a := &countingTier{name: "a", configured: true, err: errA}
	skipped := &countingTier{name: "skipped", configured: false}
	b := &countingTier{name: "b", configured: true, err: errB}
	_, _, err := FirstSuccess[string, string](context.Background(), "youtube", []Tier[string, string]{a, skipped, b}, "in")
	require.Error(t, err)
	var chainErr *ChainError
	require.True(t, errors.As(err, &chainErr))
	require.Len(t, chainErr.Failures, 2)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.Contains(t, err.Error(), "a: captions missing")
	require.Contains(t, err.Error(), "b: blocked")
	require.NotContains(t, err.Error(), "skipped")
}

func TestFirstSuccessNothingConfigured(t *testing.T) {
	_, _, err := FirstSuccess[string, string](context.Background(), "youtube", []Tier[string, string]{&countingTier{name: "x"}}, "in")
	require.ErrorIs(t, err, ErrNoTierAvailable)
}

func TestFirstSuccessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &countingTier{name: "a", configured: true, out: "x"}
	_, _, err := FirstSuccess[string, string](ctx, "youtube", []Tier[string, string]{a}, "in")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, a.calls)
}

func TestFuncTier(t *testing.T) {
	f := Func[string, int]{TierName: "len", Configured: true, Fn: func(ctx context.Context, s string) (int, error) { return len(s), nil }}
	out, name, err := FirstSuccess[string, int](context.Background(), "fn", []Tier[string, int]{f}, "abcd")
	require.NoError(t, err)
	require.Equal(t, 4, out)
	require.Equal(t, "len", name)
}
