package tasks

import (
	"log/slog"

	"github.com/awesomeproject/service/internal/queue"
)

// Deps are the collaborators the tasks in this package need.
type Deps struct {
	Users  UserCounter
	Logger *slog.Logger
}

// Register binds every task in this package to reg. It is called once at
// startup by each process that enqueues or executes tasks.
func Register(reg *queue.Registry, deps Deps) error {
	return reg.Register(UsersCountName, NewUsersCount(deps.Users, deps.Logger).Handle)
}
