package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oukeidos/xraylens/internal/apperrors"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second

	// JitterMax is the exclusive upper bound of the random delay component.
	JitterMax = 1 * time.Second

	// MaxBackoff caps the exponential part of a delay so large base delays
	// or long policies saturate instead of overflowing.
	MaxBackoff = time.Hour

	maxShift = 30
)

// Policy bounds a retry sequence. The zero value fails Validate.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Validate rejects policies that cannot run a single attempt.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1 (got %d)", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay must not be negative (got %s)", p.BaseDelay)
	}
	return nil
}

// Retrier runs operations under a Policy. Sleep and Jitter default to a
// context-aware timer and a uniform draw from [0, JitterMax).
type Retrier struct {
	Policy Policy
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
	// OnRetry is called before each backoff wait. attempt is 1-based.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func New(policy Policy) *Retrier {
	return &Retrier{Policy: policy}
}

// Delay returns the wait before the retry that follows attempt index i
// (0-based): base*2^i plus jitter, with base*2^i capped at MaxBackoff.
func Delay(policy Policy, i int, jitter time.Duration) time.Duration {
	if i < 0 {
		i = 0
	}
	if i > maxShift {
		i = maxShift
	}
	backoff := MaxBackoff
	if policy.BaseDelay <= MaxBackoff>>uint(i) {
		backoff = policy.BaseDelay << uint(i)
	}
	return backoff + jitter
}

// Do runs op until it succeeds, fails permanently or the policy is spent.
// Permanent errors are returned unchanged after one attempt. A spent policy
// yields a retries_exhausted error wrapping the last failure.
func Do[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	var zero T
	policy := r.Policy
	if err := policy.Validate(); err != nil {
		return zero, apperrors.New(apperrors.KindValidation, "invalid retry policy", err)
	}

	var lastErr error
	for i := 0; i < policy.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !apperrors.IsRetryable(err) {
			return zero, err
		}
		lastErr = err
		if i == policy.MaxAttempts-1 {
			break
		}

		delay := Delay(policy, i, r.jitter())
		if r.OnRetry != nil {
			r.OnRetry(i+1, delay, err)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, apperrors.RetriesExhausted(lastErr)
}

func (r *Retrier) jitter() time.Duration {
	if r.Jitter != nil {
		return r.Jitter()
	}
	return time.Duration(rand.Int63n(int64(JitterMax)))
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
