// Package queue is a small Redis-backed task queue. Producers enqueue named
// tasks through a Client; Worker processes consume them, dispatch to the
// handler registered under the task name and record the outcome in the
// result backend.
//
// A message moves through:
//
//	PENDING → SUCCESS | FAILURE
//
// There is no retry policy: a failed invocation is recorded once and left
// for the caller to inspect.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the recorded outcome of a task invocation.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

var (
	// ErrUnknownTask is returned when no handler is registered for a task name.
	ErrUnknownTask = errors.New("unknown task")

	// ErrNoResult is returned when the result backend has no entry for a task id.
	ErrNoResult = errors.New("no result for task")

	// ErrMalformedMessage is returned by Consume when a queue entry cannot be
	// decoded. The entry has already been removed from the queue.
	ErrMalformedMessage = errors.New("malformed message")
)

// Message is the payload carried by the broker for one invocation.
type Message struct {
	ID         string          `json:"id"`
	Task       string          `json:"task"`
	Args       json.RawMessage `json:"args,omitempty"`
	Retries    int             `json:"retries"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Request is the invocation context handed to a task handler. It describes
// the specific execution request and is safe to print.
type Request struct {
	ID         string
	Task       string
	Args       json.RawMessage
	Retries    int
	Queue      string
	Hostname   string
	EnqueuedAt time.Time

	// Eager is true when the task runs in-process through Client.Apply.
	Eager bool
}

// String renders the request on a single line for diagnostics.
func (r *Request) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Request id=%s task=%s retries=%d queue=%s hostname=%s eager=%t",
		r.ID, r.Task, r.Retries, r.Queue, r.Hostname, r.Eager)
	if !r.EnqueuedAt.IsZero() {
		fmt.Fprintf(&b, " enqueued_at=%s", r.EnqueuedAt.UTC().Format(time.RFC3339))
	}
	if len(r.Args) > 0 {
		fmt.Fprintf(&b, " args=%s", r.Args)
	}
	b.WriteString(">")
	return b.String()
}

// Result is what the result backend stores for an invocation.
type Result struct {
	ID       string          `json:"id"`
	Task     string          `json:"task"`
	Status   Status          `json:"status"`
	Value    json.RawMessage `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`
	DoneAt   time.Time       `json:"done_at"`
	Hostname string          `json:"hostname,omitempty"`
}

// Ready reports whether the invocation has finished.
func (r *Result) Ready() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailure
}

// Decode unmarshals a successful result value into v.
func (r *Result) Decode(v any) error {
	if r.Status != StatusSuccess {
		return fmt.Errorf("task %s did not succeed: status=%s error=%q", r.ID, r.Status, r.Error)
	}
	if err := json.Unmarshal(r.Value, v); err != nil {
		return fmt.Errorf("decode result of task %s: %w", r.ID, err)
	}
	return nil
}

func (m *Message) request(queue, hostname string) *Request {
	return &Request{
		ID:         m.ID,
		Task:       m.Task,
		Args:       m.Args,
		Retries:    m.Retries,
		Queue:      queue,
		Hostname:   hostname,
		EnqueuedAt: m.EnqueuedAt,
	}
}
