package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/tutormesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ Model = (*MockModel)(nil)
	_ Model = (*RetryModel)(nil)
)

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("test")
	m.AddResponse("goroutines", "A goroutine is a lightweight thread.")

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Message{core.NewUserMessage("Tell me about goroutines")},
	})
	require.NoError(t, err)
	assert.Equal(t, "A goroutine is a lightweight thread.", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
}

type transientErr struct{}

func (transientErr) Error() string   { return "connection reset" }
func (transientErr) Transient() bool { return true }

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &failNTimes{failures: 2, err: transientErr{}}
	m := WithRetry(inner, func(o *RetryOptions) {
		o.MaxRetries = 2
		o.Backoff = time.Millisecond
	})

	resp, err := m.Generate(context.Background(), Request{Contents: []core.Message{core.NewUserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	inner := &failNTimes{failures: 10, err: transientErr{}}
	m := WithRetry(inner, func(o *RetryOptions) {
		o.MaxRetries = 2
		o.Backoff = time.Millisecond
	})

	_, err := m.Generate(context.Background(), Request{Contents: []core.Message{core.NewUserMessage("hi")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGeneration))
	assert.Equal(t, 3, inner.calls, "one initial attempt plus two retries")
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	inner := &failNTimes{failures: 10, err: errors.New("invalid api key")}
	m := WithRetry(inner, func(o *RetryOptions) {
		o.MaxRetries = 2
		o.Backoff = time.Millisecond
	})

	_, err := m.Generate(context.Background(), Request{Contents: []core.Message{core.NewUserMessage("hi")}})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	inner := &failNTimes{failures: 10, err: transientErr{}}
	m := WithRetry(inner, func(o *RetryOptions) {
		o.MaxRetries = 5
		o.Backoff = 50 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, Request{Contents: []core.Message{core.NewUserMessage("hi")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

// failNTimes fails the first N calls with err, then succeeds.
type failNTimes struct {
	failures int
	calls    int
	err      error
}

func (f *failNTimes) Generate(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Response{Text: "ok", FinishReason: "stop"}, nil
}

func (f *failNTimes) Info() Info { return Info{Name: "failing", Provider: "mock"} }
