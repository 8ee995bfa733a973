package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/canvasflow/analytics"
	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

var ErrNoTierAvailable = errors.New("no fetch tier is configured")

// Tier is one strategy for turning an input into an output. Tiers that are
// not Available (missing API key or service URL) are skipped without
// counting as a failure.
type Tier[I any, O any] interface {
	Name() string
	Available() bool
	Attempt(ctx context.Context, input I) (O, error)
}

type Failure struct {
	Tier string
	Err  error
}

// ChainError is returned when every configured tier failed.
type ChainError struct {
	Chain    string
	Failures []Failure
}

func (e *ChainError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v", e.Chain, ErrNoTierAvailable)
	}
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %v", f.Tier, f.Err))
	}
	return fmt.Sprintf("%s: all tiers failed (%s)", e.Chain, strings.Join(reasons, "; "))
}

func (e *ChainError) Unwrap() []error {
	if len(e.Failures) == 0 {
		return []error{ErrNoTierAvailable}
	}
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FirstSuccess tries tiers in order and returns the first output together
// with the name of the tier that produced it. Tiers never run concurrently.
func FirstSuccess[I any, O any](ctx context.Context, chain string, tiers []Tier[I, O], input I) (O, string, error) {
	var zero O
	chainErr := &ChainError{Chain: chain}
	for _, t := range tiers {
		if !t.Available() {
			logger.Debug("tier not configured, skipping", zap.String("chain", chain), zap.String("tier", t.Name()))
			analytics.RecordTierAttempt(ctx, chain, t.Name(), analytics.OUTCOME_SKIPPED, 0)
			continue
		}
		if err := ctx.Err(); err != nil {
			chainErr.Failures = append(chainErr.Failures, Failure{Tier: t.Name(), Err: err})
			return zero, "", chainErr
		}
		start := time.Now()
		out, err := t.Attempt(ctx, input)
		latency := time.Since(start)
		if err == nil {
			analytics.RecordTierAttempt(ctx, chain, t.Name(), analytics.OUTCOME_SUCCESS, latency)
			logger.Info("tier succeeded", zap.String("chain", chain), zap.String("tier", t.Name()), zap.Duration("latency", latency))
			return out, t.Name(), nil
		}
		analytics.RecordTierAttempt(ctx, chain, t.Name(), analytics.OUTCOME_FAILURE, latency)
		logger.Warn("tier failed, falling through", zap.String("chain", chain), zap.String("tier", t.Name()), zap.Error(err))
		chainErr.Failures = append(chainErr.Failures, Failure{Tier: t.Name(), Err: err})
	}
	return zero, "", chainErr
}

// Func adapts a function into a Tier.
type Func[I any, O any] struct {
	TierName   string
	Configured bool
	Fn         func(ctx context.Context, input I) (O, error)
}

func (f Func[I, O]) Name() string {
	return f.TierName
}

func (f Func[I, O]) Available() bool {
	return f.Configured
}

func (f Func[I, O]) Attempt(ctx context.Context, input I) (O, error) {
	return f.Fn(ctx, input)
}
