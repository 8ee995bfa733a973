package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
)

const DEFAULT_MAX_RETRIES = 3
const DEFAULT_INITIAL_DELAY = 1 * time.Second
const DEFAULT_MAX_DELAY = 10 * time.Second
const DEFAULT_MULTIPLIER = 2.0

// Policy describes how an operation is retried. The delay before retry
// number n (starting at 0) is min(InitialDelay * Multiplier^n, MaxDelay),
// optionally randomized by Jitter (0 disables it).
type Policy struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         float64
	AttemptTimeout time.Duration
	OnRetry        func(attempt int, delay time.Duration, err error)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   DEFAULT_MAX_RETRIES,
		InitialDelay: DEFAULT_INITIAL_DELAY,
		MaxDelay:     DEFAULT_MAX_DELAY,
		Multiplier:   DEFAULT_MULTIPLIER,
	}
}

func (p Policy) WithMaxRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

func (p Policy) WithAttemptTimeout(d time.Duration) Policy {
	p.AttemptTimeout = d
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = DEFAULT_INITIAL_DELAY
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = DEFAULT_MAX_DELAY
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier <= 0 {
		b.Multiplier = DEFAULT_MULTIPLIER
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// Error is returned once every attempt has failed.
type Error struct {
	Context  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Context, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// Do runs op until it succeeds, returns a permanent error, the context is
// done, or the policy runs out of retries.
func Do(ctx context.Context, name string, policy Policy, op func(ctx context.Context) error) error {
	attempts := 0
	operation := func() error {
		attempts++
		if policy.AttemptTimeout <= 0 {
			return op(ctx)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()
		return op(attemptCtx)
	}
	notify := func(err error, delay time.Duration) {
		logger.Debug("retrying operation", zap.String("operation", name), zap.Int("attempt", attempts), zap.Duration("delay", delay), zap.Error(err))
		if policy.OnRetry != nil {
			policy.OnRetry(attempts, delay, err)
		}
	}
	err := backoff.RetryNotify(operation, policy.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	return &Error{Context: name, Attempts: attempts, Err: err}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, name string, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, name, policy, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
