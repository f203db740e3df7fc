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

	"github.com/hibiken/asynq"

	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/app"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit"
	audithttp "github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/audit/http"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/auth"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/observability"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/cache"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/platform/db"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/rbac"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/roles"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/settings"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/shared"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/internal/users"
	"github.com/kaungthantlinn-coding/DisasterAppApi-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "disaster_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	roleStore := rbac.NewStore(dbpool)
	roleLookup := rbac.NewCachedLookup(roleStore, redisClient, cfg.RoleCacheTTL, logger)
	rbacService := rbac.NewService(roleStore, roleLookup, logger)
	rbacMiddleware := rbac.Middleware{
		Engine: rbac.NewEngine(roleLookup, logger, metrics),
		Policy: app.NewPolicy(),
	}

	redisOpt := cfg.RedisOptions().AsynqOpt()
	auditStore := audit.NewPGStore(dbpool)
	var sink audit.Sink = auditStore
	if cfg.AuditSink == app.AuditSinkQueue {
		client := asynq.NewClient(redisOpt)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		sink = jobs.NewAuditQueue(client)
	}
	interceptor := audit.NewInterceptor(sink, logger, cfg.AuditWriteTimeout, metrics)

	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(dbpool), rbacService, logger)
	usersService := users.NewService(users.NewRepository(dbpool), rbacService, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		RBACMiddleware:   rbacMiddleware,
		AuditInterceptor: interceptor,
		Metrics:          metrics,
		Health: []app.Pinger{
			dbpool,
			app.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
		AuthHandler:     auth.NewHandler(logger, authService, sessionManager, roleLookup),
		UsersHandler:    users.NewHandler(logger, usersService, rbacMiddleware),
		RolesHandler:    roles.NewHandler(logger, roles.NewService(rbacService, roleLookup, logger), rbacMiddleware),
		SettingsHandler: settings.NewHandler(settings.NewStore(settings.Defaults()), rbacMiddleware),
		AuditHandler:    audithttp.NewHandler(logger, audit.NewService(auditStore, logger)),
		JobsHandler:     jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("audit_sink", cfg.AuditSink))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	interceptor.Close()
}
