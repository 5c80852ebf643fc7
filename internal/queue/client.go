package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Client enqueues tasks by name and reads back their results.
type Client struct {
	broker   Broker
	registry *Registry
}

// NewClient creates a Client. Only names present in registry can be enqueued.
func NewClient(broker Broker, registry *Registry) *Client {
	return &Client{broker: broker, registry: registry}
}

// Enqueue publishes an invocation of the named task and returns its id. args
// may be nil; otherwise it is JSON encoded and handed to the handler as
// Request.Args.
func (c *Client) Enqueue(ctx context.Context, name string, args any) (string, error) {
	if _, err := c.registry.Lookup(name); err != nil {
		return "", err
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}

	msg := &Message{
		ID:         uuid.NewString(),
		Task:       name,
		Args:       raw,
		EnqueuedAt: time.Now().UTC(),
	}

	pending := &Result{ID: msg.ID, Task: name, Status: StatusPending}
	if err := c.broker.SetResult(ctx, pending); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	if err := c.broker.Publish(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	return msg.ID, nil
}

// Result returns the current state of the invocation with the given id.
func (c *Client) Result(ctx context.Context, id string) (*Result, error) {
	return c.broker.GetResult(ctx, id)
}

// Wait polls the result backend every poll interval until the invocation is
// finished or ctx is done.
func (c *Client) Wait(ctx context.Context, id string, poll time.Duration) (*Result, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		res, err := c.broker.GetResult(ctx, id)
		if err != nil {
			return nil, err
		}
		if res.Ready() {
			return res, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for task %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Apply runs the named task in the calling goroutine, bypassing the broker.
// The handler's error is returned unchanged.
func (c *Client) Apply(ctx context.Context, name string, args any) (any, error) {
	h, err := c.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", name, err)
	}

	hostname, _ := os.Hostname()
	req := &Request{
		ID:         uuid.NewString(),
		Task:       name,
		Args:       raw,
		Queue:      c.broker.Name(),
		Hostname:   hostname,
		EnqueuedAt: time.Now().UTC(),
		Eager:      true,
	}
	return h(ctx, req)
}

func encodeArgs(args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	return raw, nil
}
