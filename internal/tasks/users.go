// Package tasks holds the background tasks executed by the worker and the
// explicit registration that binds them to the queue.
package tasks

import (
	"context"
	"log/slog"

	"github.com/awesomeproject/service/internal/queue"
)

// UsersCountName is the stable name the user-count task is enqueued under.
const UsersCountName = "users.get_users_count"

// UserCounter counts all persisted user records.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// UsersCount reports the total number of users. It exists mostly to show
// how a task is written and registered.
type UsersCount struct {
	users  UserCounter
	logger *slog.Logger
}

// NewUsersCount creates the task over the given counter.
func NewUsersCount(users UserCounter, logger *slog.Logger) *UsersCount {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersCount{users: users, logger: logger}
}

// Run logs the invocation context once and returns the user count. Errors
// from the counter are returned as-is.
func (t *UsersCount) Run(ctx context.Context, req *queue.Request) (int64, error) {
	t.logger.InfoContext(ctx, "task request", "request", req.String())
	return t.users.Count(ctx)
}

// Handle adapts Run to queue.Handler.
func (t *UsersCount) Handle(ctx context.Context, req *queue.Request) (any, error) {
	n, err := t.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return n, nil
}
