package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/muniadmin/muniadmin/internal/app"
	jobmetrics "github.com/muniadmin/muniadmin/internal/jobs"
	"github.com/muniadmin/muniadmin/internal/platform/db"
	"github.com/muniadmin/muniadmin/internal/rbac"
	"github.com/muniadmin/muniadmin/jobs"
)

// NewWorkerCmd creates the worker subcommand.
func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process background RBAC jobs",
		Long: `Runs the queue worker that handles reseed requests and the scheduled
audit comparing persisted role grants with the role matrix.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping worker startup")
				return nil
			}
			return runWorker(cmd.Context())
		},
	}
}

func runWorker(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadWorkerConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "load worker config").Wrap(err)
	}
	logger := app.NewLogger(cfg.LogFormat)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect postgres").Wrap(err)
	}
	defer pool.Close()

	store := rbac.NewPostgresStore(pool)
	metrics := jobmetrics.NewMetrics(nil)
	reseedJob := jobs.NewReseedJob(rbac.NewSeeder(store, logger), logger, metrics)
	auditJob := jobs.NewAuditJob(rbac.NewService(store, nil, logger), logger, metrics)

	workerCfg := jobs.WorkerConfig{
		RedisOpts:   redisOpts(cfg.DatabaseConfig),
		Logger:      logger,
		Concurrency: cfg.Concurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRBACReseed, Handler: reseedJob.Handle},
			{Type: jobs.TaskRBACAudit, Handler: auditJob.Handle},
		},
	}
	if cfg.AuditCron != "" {
		auditTask, err := jobs.NewAuditTask(jobs.AuditTriggerCron)
		if err != nil {
			return oops.Code("WORKER_INIT_FAILED").With("operation", "build audit task").Wrap(err)
		}
		workerCfg.Cron = append(workerCfg.Cron, jobs.CronRegistration{
			Spec:    cfg.AuditCron,
			Task:    auditTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(workerCfg)
	if err != nil {
		return oops.Code("WORKER_INIT_FAILED").With("operation", "init worker").With("audit_cron", cfg.AuditCron).Wrap(err)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.Concurrency), slog.String("audit_cron", cfg.AuditCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return oops.Code("WORKER_FAILED").With("operation", "run worker").Wrap(err)
	}
	return nil
}

func redisOpts(cfg app.DatabaseConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
}
