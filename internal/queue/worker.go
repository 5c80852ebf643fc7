package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPollTimeout  = 2 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Broker   Broker
	Registry *Registry
	Logger   *slog.Logger

	// Concurrency is the number of consumers pulling from the broker.
	// Defaults to 1.
	Concurrency int

	// PollTimeout bounds a single blocking Consume call, and therefore how
	// long Run takes to notice cancellation. Defaults to 2 seconds.
	PollTimeout time.Duration

	// RetryBackoff is the first pause after a broker error. It doubles on
	// each consecutive failure up to 30 seconds. Defaults to 500ms.
	RetryBackoff time.Duration
}

// Worker consumes messages and executes the registered handlers.
type Worker struct {
	broker      Broker
	registry    *Registry
	logger      *slog.Logger
	concurrency int
	pollTimeout time.Duration
	backoff     time.Duration
	hostname    string
}

// NewWorker creates a Worker from opts.
func NewWorker(opts WorkerOptions) *Worker {
	w := &Worker{
		broker:      opts.Broker,
		registry:    opts.Registry,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		pollTimeout: opts.PollTimeout,
		backoff:     opts.RetryBackoff,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	if w.pollTimeout <= 0 {
		w.pollTimeout = defaultPollTimeout
	}
	if w.backoff <= 0 {
		w.backoff = defaultRetryBackoff
	}
	w.hostname, _ = os.Hostname()
	return w
}

// Run starts the consumers and blocks until ctx is cancelled. Broker errors
// are logged and retried with backoff; undecodable messages are dropped.
// Cancellation is not reported as an error.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"queue", w.broker.Name(),
		"concurrency", w.concurrency,
		"tasks", w.registry.Names(),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.Info("worker stopped", "queue", w.broker.Name())
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	backoff := w.backoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := w.broker.Consume(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrMalformedMessage) {
				w.logger.Warn("dropping malformed message", "queue", w.broker.Name(), "error", err)
				continue
			}

			w.logger.Error("consume failed", "queue", w.broker.Name(), "retry_in", backoff, "error", err)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, maxRetryBackoff)
			continue
		}
		backoff = w.backoff
		if msg == nil {
			continue
		}

		res := w.Process(ctx, msg)
		// Record the outcome even when ctx was cancelled mid-task.
		if err := w.broker.SetResult(context.WithoutCancel(ctx), res); err != nil {
			w.logger.Error("failed to store task result", "task", msg.Task, "id", msg.ID, "error", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Process executes a single message and returns its result. It never
// returns a nil Result.
func (w *Worker) Process(ctx context.Context, msg *Message) *Result {
	start := time.Now()
	res := &Result{ID: msg.ID, Task: msg.Task, Hostname: w.hostname}

	value, err := w.execute(ctx, msg)
	res.DoneAt = time.Now().UTC()
	if err != nil {
		res.Status = StatusFailure
		res.Error = err.Error()
		w.logger.Error("task failed",
			"task", msg.Task, "id", msg.ID, "duration", time.Since(start), "error", err)
		return res
	}

	res.Status = StatusSuccess
	res.Value = value
	w.logger.Info("task succeeded", "task", msg.Task, "id", msg.ID, "duration", time.Since(start))
	return res
}

func (w *Worker) execute(ctx context.Context, msg *Message) (value json.RawMessage, err error) {
	h, err := w.registry.Lookup(msg.Task)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", msg.Task, r)
		}
	}()

	out, err := h(ctx, msg.request(w.broker.Name(), w.hostname))
	if err != nil {
		return nil, err
	}

	value, err = json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result of %s: %w", msg.Task, err)
	}
	return value, nil
}
