package queue

import (
	"context"
	"time"
)

// Broker transports messages between producers and workers and stores
// invocation results. RedisBroker is the production implementation.
type Broker interface {
	// Publish appends msg to the queue.
	Publish(ctx context.Context, msg *Message) error
	// Consume blocks for up to timeout waiting for the next message. It
	// returns (nil, nil) when the timeout elapses with nothing to deliver and
	// an error wrapping ErrMalformedMessage for entries it cannot decode.
	Consume(ctx context.Context, timeout time.Duration) (*Message, error)
	// SetResult records the outcome of an invocation.
	SetResult(ctx context.Context, res *Result) error
	// GetResult returns the recorded outcome, or ErrNoResult.
	GetResult(ctx context.Context, id string) (*Result, error)
	// Name identifies the queue the broker reads from.
	Name() string
}
