//	@title			Awesome Project API
//	@version		1.0
//	@description	User accounts, media uploads and background task control.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/awesomeproject/service/internal/auth"
	"github.com/awesomeproject/service/internal/config"
	"github.com/awesomeproject/service/internal/db"
	"github.com/awesomeproject/service/internal/logging"
	appMiddleware "github.com/awesomeproject/service/internal/middleware"
	"github.com/awesomeproject/service/internal/queue"
	"github.com/awesomeproject/service/internal/storage"
	"github.com/awesomeproject/service/internal/tasks"
	"github.com/awesomeproject/service/internal/user"

	_ "github.com/awesomeproject/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited with error", "error", err)
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

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}

	backend, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		return err
	}
	stores, err := storage.Open(ctx, backend, cfg.StorageBucketPrefix)
	if err != nil {
		return err
	}

	redisPool := queue.NewPool(cfg.RedisURL)
	defer redisPool.Close()
	if err := queue.Ping(ctx, redisPool); err != nil {
		return err
	}

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc, stores[storage.Media().Name])

	registry := queue.NewRegistry()
	if err := tasks.Register(registry, tasks.Deps{Users: userSvc, Logger: logger}); err != nil {
		return err
	}
	broker := queue.NewRedisBroker(redisPool, cfg.TaskQueue, cfg.TaskResultTTL)
	taskHandler := tasks.NewHandler(queue.NewClient(broker, registry), registry)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI, available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Static assets live in blob storage; redirect to them.
	r.Handle("/static/*", http.StripPrefix("/static", storage.RedirectHandler(stores[storage.Static().Name])))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Protected user endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Get("/me", userHandler.GetMe)
			r.Post("/me/avatar", userHandler.UploadAvatar)
		})

		// Staff-only task control
		r.Route("/tasks", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Use(appMiddleware.RequireRole(auth.RoleStaff))
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Enqueue)
			r.Get("/{id}", taskHandler.Get)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		logger.Info("swagger UI available", "url", "http://localhost:"+cfg.Port+"/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
