package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muniadmin/muniadmin/internal/app"
	"github.com/muniadmin/muniadmin/internal/auth"
	"github.com/muniadmin/muniadmin/internal/observability"
	"github.com/muniadmin/muniadmin/internal/platform/cache"
	"github.com/muniadmin/muniadmin/internal/platform/db"
	"github.com/muniadmin/muniadmin/internal/rbac"
	"github.com/muniadmin/muniadmin/internal/roles"
	"github.com/muniadmin/muniadmin/internal/shared"
	"github.com/muniadmin/muniadmin/internal/users"
	"github.com/muniadmin/muniadmin/jobs"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}

	logger := app.NewLogger(cfg.LogFormat)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect postgres").Wrap(err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return oops.Code("REDIS_CONNECT_FAILED").With("operation", "connect redis").Wrap(err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "muniadmin_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	usersRepo := users.NewRepository(dbpool)

	serviceOpts := []rbac.ServiceOption{rbac.WithRecorder(metrics)}
	if snapshotCache := newSnapshotCache(cfg, redisClient); snapshotCache != nil {
		serviceOpts = append(serviceOpts, rbac.WithCache(snapshotCache))
	}
	rbacService := rbac.NewService(rbac.NewPostgresStore(dbpool), usersRepo, logger, serviceOpts...)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Recorder: metrics}

	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager, csrfManager, rbacService)
	permissionsHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(rbacService), rbacMiddleware)
	usersHandler := users.NewHandler(logger, users.NewService(usersRepo, rbacService, logger), rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("queue inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		JobsHandler:        jobs.NewHandler(inspector, logger),
		JobsGuard:          rbacMiddleware.RequireModule(rbac.ModuleSettings, rbac.ActionRead),
		Metrics:            metrics,
		Checks:             healthChecks(dbpool, redisClient),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("snapshot_cache", cfg.SnapshotCache))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

// newSnapshotCache picks the capability snapshot cache named by SNAPSHOT_CACHE.
// It returns nil when caching is off.
func newSnapshotCache(cfg *app.Config, client *redis.Client) rbac.SnapshotCache {
	switch cfg.SnapshotCache {
	case app.SnapshotCacheRedis:
		return rbac.NewRedisSnapshotCache(client, cfg.SnapshotTTL)
	case app.SnapshotCacheLocal:
		return rbac.NewLocalSnapshotCache(cfg.SnapshotCacheSize, cfg.SnapshotTTL)
	default:
		return nil
	}
}

func healthChecks(pool *pgxpool.Pool, client *redis.Client) map[string]app.HealthCheck {
	return map[string]app.HealthCheck{
		"postgres": pool.Ping,
		"redis": func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
