package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/app"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	jobmetrics "github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/jobs"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/db"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/jobs"
)

func main() {
	purgeNow := flag.Bool("purge-now", false, "enqueue one audit retention run and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	redisOpt := cfg.RedisOptions().AsynqOpt()

	purgeTask, err := jobs.NewAuditPurgeTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	if *purgeNow {
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		info, err := client.EnqueueContext(ctx, purgeTask)
		if err != nil {
			logger.Error("enqueue purge", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("purge enqueued", slog.String("task_id", info.ID))
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	store := audit.NewPGStore(pool)
	writeJob := jobs.NewAuditWriteJob(store, logger, metrics)
	purgeJob := jobs.NewAuditPurgeJob(audit.NewService(store, logger), cfg.AuditRetention, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditWrite, Handler: writeJob.Handle},
			{Type: jobs.TaskAuditPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditRetentionCron, Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
