package llmchat

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior with exponential backoff. Retries
// happen inside the client layer only; the drafting loop treats a failed
// decision as fatal and never re-issues a round itself.
type RetryPolicy struct {
	MaxRetries        int     // retry attempts after the initial call
	BaseDelay         float64 // initial delay in seconds
	MaxDelay          float64 // cap on the delay between attempts
	BackoffMultiplier float64
	Jitter            bool
	OnRetry           func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         1.0,
		MaxDelay:          30.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay returns the backoff delay for attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.BackoffMultiplier, float64(attempt)), p.MaxDelay)
	if p.Jitter {
		// +/- 50% jitter
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry executes fn under the policy. Only retryable errors are retried;
// a RateLimitError's Retry-After hint overrides the computed backoff unless
// it exceeds MaxDelay, in which case the error is returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := fn(ctx)
	for attempt := 0; err != nil && attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			hinted := time.Duration(*rl.RetryAfter * float64(time.Second))
			if hinted > time.Duration(policy.MaxDelay*float64(time.Second)) {
				return zero, err
			}
			delay = hinted
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{ServiceError: ServiceError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-time.After(delay):
		}

		result, err = fn(ctx)
	}
	if err != nil {
		return zero, err
	}
	return result, nil
}

// retryingAdapter decorates an Adapter with a RetryPolicy.
type retryingAdapter struct {
	inner  Adapter
	policy RetryPolicy
}

// WithRetries wraps an adapter so that every Complete call runs under the
// given policy. Wrapping with MaxRetries <= 0 returns the adapter unchanged.
func WithRetries(a Adapter, policy RetryPolicy) Adapter {
	if policy.MaxRetries <= 0 {
		return a
	}
	return &retryingAdapter{inner: a, policy: policy}
}

func (r *retryingAdapter) Name() string {
	return r.inner.Name()
}

func (r *retryingAdapter) Complete(ctx context.Context, req Request) (*Reply, error) {
	return Retry(ctx, r.policy, func(ctx context.Context) (*Reply, error) {
		return r.inner.Complete(ctx, req)
	})
}

func (r *retryingAdapter) Close() error {
	if closer, ok := r.inner.(Closer); ok {
		return closer.Close()
	}
	return nil
}
