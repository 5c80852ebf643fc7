package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(t *testing.T, reg *Registry) (*Worker, *RedisBroker) {
	t.Helper()
	b, _ := newTestBroker(t)
	return NewWorker(WorkerOptions{
		Broker:      b,
		Registry:    reg,
		Logger:      discardLogger(),
		Concurrency: 2,
		PollTimeout: time.Second,
	}), b
}

func TestWorkerProcess(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("ok", func(context.Context, *Request) (any, error) { return 3, nil }))
	require.NoError(t, reg.Register("fail", func(context.Context, *Request) (any, error) {
		return nil, errors.New("store unavailable")
	}))
	require.NoError(t, reg.Register("panic", func(context.Context, *Request) (any, error) { panic("kaboom") }))
	w, _ := newTestWorker(t, reg)
	ctx := context.Background()

	res := w.Process(ctx, &Message{ID: "1", Task: "ok"})
	assert.Equal(t, StatusSuccess, res.Status)
	assert.JSONEq(t, "3", string(res.Value))

	res = w.Process(ctx, &Message{ID: "2", Task: "fail"})
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, "store unavailable", res.Error)

	res = w.Process(ctx, &Message{ID: "3", Task: "missing"})
	assert.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.Error, "unknown task")

	res = w.Process(ctx, &Message{ID: "4", Task: "panic"})
	assert.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.Error, "kaboom")
}

func TestWorkerPassesInvocationContext(t *testing.T) {
	reg := NewRegistry()
	var seen *Request
	require.NoError(t, reg.Register("inspect", func(_ context.Context, req *Request) (any, error) {
		seen = req
		return nil, nil
	}))
	w, _ := newTestWorker(t, reg)

	w.Process(context.Background(), &Message{ID: "x", Task: "inspect", Retries: 2})

	require.NotNil(t, seen)
	assert.Equal(t, "x", seen.ID)
	assert.Equal(t, 2, seen.Retries)
	assert.Equal(t, "default", seen.Queue)
	assert.False(t, seen.Eager)
}

func TestWorkerRunEndToEnd(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("answer", func(context.Context, *Request) (any, error) { return 42, nil }))
	w, b := newTestWorker(t, reg)
	client := NewClient(b, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	id, err := client.Enqueue(ctx, "answer", nil)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	res, err := client.Wait(waitCtx, id, 20*time.Millisecond)
	require.NoError(t, err)

	var n int
	require.NoError(t, res.Decode(&n))
	assert.Equal(t, 42, n)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorkerSkipsMalformedMessages(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("answer", func(context.Context, *Request) (any, error) { return 42, nil }))
	b, s := newTestBroker(t)
	w := NewWorker(WorkerOptions{Broker: b, Registry: reg, Logger: discardLogger(), PollTimeout: time.Second})
	client := NewClient(b, reg)

	_, err := s.Lpush("tasks:default", "not json")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	id, err := client.Enqueue(ctx, "answer", nil)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	res, err := client.Wait(waitCtx, id, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

// flakyBroker fails the first failures Consume calls, then idles.
type flakyBroker struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyBroker) Name() string                             { return "flaky" }
func (f *flakyBroker) Publish(context.Context, *Message) error  { return nil }
func (f *flakyBroker) SetResult(context.Context, *Result) error { return nil }
func (f *flakyBroker) GetResult(context.Context, string) (*Result, error) {
	return nil, ErrNoResult
}

func (f *flakyBroker) Consume(ctx context.Context, timeout time.Duration) (*Message, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection refused")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func TestWorkerRetriesBrokerErrors(t *testing.T) {
	b := &flakyBroker{failures: 3}
	w := NewWorker(WorkerOptions{
		Broker:       b,
		Registry:     NewRegistry(),
		Logger:       discardLogger(),
		RetryBackoff: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return b.calls.Load() > b.failures+1 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
