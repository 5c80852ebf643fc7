package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/awesomeproject/service/internal/config"
	"github.com/awesomeproject/service/internal/db"
	"github.com/awesomeproject/service/internal/logging"
	"github.com/awesomeproject/service/internal/queue"
	"github.com/awesomeproject/service/internal/tasks"
	"github.com/awesomeproject/service/internal/user"
)

type UsersCountOptions struct {
	Wait    bool
	Eager   bool
	Timeout time.Duration

	// users and redisPool replace the Postgres store and the configured Redis
	// pool when set.
	users     tasks.UserCounter
	redisPool *redis.Pool

	iooption.IOStreams
}

var (
	usersCountLong = templates.LongDesc(`
		Enqueue the users.get_users_count task. With --wait the command polls
		the result backend and prints the count; with --eager the task runs in
		this process without going through the queue.`)

	usersCountExample = templates.Examples(`
		# Fire and forget, printing the task id
		manage users count

		# Enqueue and wait up to a minute for a worker to answer
		manage users count --wait --timeout 1m

		# Run in-process
		manage users count --eager`)
)

// NewUsersCommand groups user related subcommands.
func NewUsersCommand(streams iooption.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
	}
	cmd.AddCommand(NewUsersCountCommand(NewUsersCountOptions(streams)))
	return cmd
}

func NewUsersCountOptions(streams iooption.IOStreams) *UsersCountOptions {
	return &UsersCountOptions{
		IOStreams: streams,
	}
}

func NewUsersCountCommand(o *UsersCountOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "count",
		DisableFlagsInUseLine: true,
		Short:                 "Count users through the task queue",
		Long:                  usersCountLong,
		Example:               usersCountExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	cmd.Flags().BoolVarP(&o.Wait, "wait", "w", false, "Wait for the result")
	cmd.Flags().BoolVarP(&o.Eager, "eager", "e", false, "Run the task in this process")
	cmd.Flags().DurationVarP(&o.Timeout, "timeout", "t", 30*time.Second, "How long to wait for the result")

	return cmd
}

func (o *UsersCountOptions) Complete(cmd *cobra.Command, args []string) error {
	return nil
}

func (o *UsersCountOptions) Validate() error {
	if o.Wait && o.Eager {
		return fmt.Errorf("--wait and --eager are mutually exclusive")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	return nil
}

func (o *UsersCountOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, o.ErrOut)

	users := o.users
	if users == nil && o.Eager {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = user.NewService(user.NewRepository(pool))
	}

	redisPool := o.redisPool
	if redisPool == nil {
		redisPool = queue.NewPool(cfg.RedisURL)
		defer redisPool.Close()
	}

	// Without --eager the handler only needs to be known to the client; a
	// worker process executes it.
	registry := queue.NewRegistry()
	if err := tasks.Register(registry, tasks.Deps{Users: users, Logger: logger}); err != nil {
		return err
	}
	client := queue.NewClient(queue.NewRedisBroker(redisPool, cfg.TaskQueue, cfg.TaskResultTTL), registry)

	if o.Eager {
		n, err := client.Apply(ctx, tasks.UsersCountName, nil)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		fmt.Fprintln(o.Out, n)
		return nil
	}

	id, err := client.Enqueue(ctx, tasks.UsersCountName, nil)
	if err != nil {
		return err
	}
	if !o.Wait {
		fmt.Fprintf(o.Out, "Enqueued %s as %s\n", tasks.UsersCountName, id)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	res, err := client.Wait(waitCtx, id, 250*time.Millisecond)
	if err != nil {
		return err
	}

	var n int64
	if err := res.Decode(&n); err != nil {
		return err
	}
	fmt.Fprintln(o.Out, n)
	return nil
}
