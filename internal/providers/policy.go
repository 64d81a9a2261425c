package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Policy bounds every backend call: a token bucket, a per-attempt timeout,
// and a retry budget spent only on transient failures.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	Limiter    *rate.Limiter
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps
// is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (p Policy) backoff(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// do runs fn under the policy. provider and capability label metrics.
func do[T any](ctx context.Context, p Policy, provider Name, capability string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	result, err := attempt(ctx, p, fn)

	callDuration.WithLabelValues(string(provider), capability).Observe(time.Since(start).Seconds())
	callsTotal.WithLabelValues(string(provider), capability, outcome(err)).Inc()

	if err != nil {
		return zero, err
	}
	return result, nil
}

func attempt[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)

	for i := 0; ; i++ {
		if p.Limiter != nil {
			if werr := p.Limiter.Wait(ctx); werr != nil {
				if ctx.Err() != nil {
					return zero, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
				}
				return zero, fmt.Errorf("%w: %v", ErrRateLimit, werr)
			}
		}

		var result T
		result, err = call(ctx, p.Timeout, fn)
		if err == nil {
			return result, nil
		}

		if !isTransient(err) || i >= p.MaxRetries || ctx.Err() != nil {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
		case <-time.After(p.backoff(i)):
		}
	}
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrProviderUnavailable) {
		err = transient(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	return result, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, ErrProviderMismatch):
		return "mismatch"
	default:
		return "error"
	}
}

// guarded applies a Policy to an Embedder and a Completer.
type guarded struct {
	name      Name
	policy    Policy
	embedder  Embedder
	completer Completer
}

func (g *guarded) Embed(ctx context.Context, text string) ([]float64, error) {
	return do(ctx, g.policy, g.name, "embed", func(ctx context.Context) ([]float64, error) {
		return g.embedder.Embed(ctx, text)
	})
}

func (g *guarded) Complete(ctx context.Context, prompt string) (string, error) {
	return do(ctx, g.policy, g.name, "complete", func(ctx context.Context) (string, error) {
		return g.completer.Complete(ctx, prompt)
	})
}
