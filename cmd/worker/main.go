package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/awesomeproject/service/internal/config"
	"github.com/awesomeproject/service/internal/db"
	"github.com/awesomeproject/service/internal/logging"
	"github.com/awesomeproject/service/internal/queue"
	"github.com/awesomeproject/service/internal/tasks"
	"github.com/awesomeproject/service/internal/user"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisPool := queue.NewPool(cfg.RedisURL)
	defer redisPool.Close()
	if err := queue.Ping(ctx, redisPool); err != nil {
		return err
	}

	// Tasks are registered explicitly; nothing is discovered at import time.
	registry := queue.NewRegistry()
	if err := tasks.Register(registry, tasks.Deps{
		Users:  user.NewService(user.NewRepository(pool)),
		Logger: logger,
	}); err != nil {
		return err
	}

	worker := queue.NewWorker(queue.WorkerOptions{
		Broker:      queue.NewRedisBroker(redisPool, cfg.TaskQueue, cfg.TaskResultTTL),
		Registry:    registry,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
	})
	return worker.Run(ctx)
}
