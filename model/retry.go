package model

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hupe1980/tutormesh/core"
)

// RetryOptions configures the retry wrapper.
type RetryOptions struct {
	// MaxRetries is the number of extra attempts after the first failure.
	MaxRetries int
	// Backoff is the base delay between attempts; doubled per attempt and
	// capped at MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// RetryModel wraps a Model with a bounded retry budget and a hard per-call
// timeout. Transient failures (deadline exceeded, transport errors) are
// retried with capped backoff; exhausting the budget surfaces a
// core.ErrGeneration the capability recovery chain handles.
type RetryModel struct {
	inner Model
	opts  RetryOptions
}

// WithRetry wraps m with the retry policy.
func WithRetry(m Model, optFns ...func(o *RetryOptions)) *RetryModel {
	opts := RetryOptions{
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RetryModel{inner: m, opts: opts}
}

// Generate implements Model. Each attempt runs under the request's Timeout if
// set; a timeout counts as a transient failure eligible for retry.
func (r *RetryModel) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	backoff := r.opts.Backoff

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.opts.MaxBackoff {
				backoff = r.opts.MaxBackoff
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if req.Options.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		}
		resp, err := r.inner.Generate(attemptCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// The caller abandoning the turn is not transient.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !transient(err) {
			break
		}
	}

	return nil, core.GenerationError(lastErr)
}

// Info implements Model.
func (r *RetryModel) Info() Info { return r.inner.Info() }

// transient reports whether err is worth another attempt.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var tr interface{ Transient() bool }
	if errors.As(err, &tr) {
		return tr.Transient()
	}
	return false
}
