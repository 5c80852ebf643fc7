package tasks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesomeproject/service/internal/queue"
)

// fakeCounter returns a fixed count or error and records calls.
type fakeCounter struct {
	n     int64
	err   error
	calls int
}

func (f *fakeCounter) Count(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func logLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestUsersCountReturnsStoreCount(t *testing.T) {
	for _, n := range []int64{0, 5, 1234} {
		var buf bytes.Buffer
		counter := &fakeCounter{n: n}
		task := NewUsersCount(counter, newLogger(&buf))

		got, err := task.Run(context.Background(), &queue.Request{ID: "id-1", Task: UsersCountName})

		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, 1, counter.calls)
	}
}

func TestUsersCountLogsRequestOnce(t *testing.T) {
	for _, n := range []int64{0, 5} {
		var buf bytes.Buffer
		task := NewUsersCount(&fakeCounter{n: n}, newLogger(&buf))
		req := &queue.Request{ID: "req-42", Task: UsersCountName, Retries: 1}

		_, err := task.Run(context.Background(), req)
		require.NoError(t, err)

		lines := logLines(&buf)
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], `msg="task request"`)
		assert.Contains(t, lines[0], "req-42")
	}
}

func TestUsersCountLogsBeforeFailing(t *testing.T) {
	var buf bytes.Buffer
	storeErr := errors.New("connection refused")
	task := NewUsersCount(&fakeCounter{err: storeErr}, newLogger(&buf))

	_, err := task.Run(context.Background(), &queue.Request{ID: "req-1"})

	assert.Same(t, storeErr, err)
	assert.Len(t, logLines(&buf), 1)
}

func TestUsersCountHandlePropagatesError(t *testing.T) {
	storeErr := errors.New("db unavailable")
	task := NewUsersCount(&fakeCounter{err: storeErr}, newLogger(&bytes.Buffer{}))

	out, err := task.Handle(context.Background(), &queue.Request{})

	assert.Nil(t, out)
	assert.Same(t, storeErr, err)
}

func TestRegisterBindsStableName(t *testing.T) {
	reg := queue.NewRegistry()
	require.NoError(t, Register(reg, Deps{Users: &fakeCounter{n: 3}, Logger: newLogger(&bytes.Buffer{})}))

	h, err := reg.Lookup("users.get_users_count")
	require.NoError(t, err)

	out, err := h(context.Background(), &queue.Request{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}
