package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sweepdesk/sweepdesk/internal/app"
	"github.com/sweepdesk/sweepdesk/internal/auth"
	"github.com/sweepdesk/sweepdesk/internal/bookings"
	"github.com/sweepdesk/sweepdesk/internal/observability"
	"github.com/sweepdesk/sweepdesk/internal/platform/cache"
	"github.com/sweepdesk/sweepdesk/internal/platform/db"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/reviews"
	"github.com/sweepdesk/sweepdesk/internal/roles"
	"github.com/sweepdesk/sweepdesk/internal/shared"
	"github.com/sweepdesk/sweepdesk/internal/token"
	"github.com/sweepdesk/sweepdesk/internal/users"
	"github.com/sweepdesk/sweepdesk/jobs"
)

// meteredAuditor counts super-role bypasses alongside the durable audit trail.
type meteredAuditor struct {
	auditor *shared.AuditLogger
	metrics *observability.Metrics
}

func (a *meteredAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.metrics.SuperAdminBypass()
	return a.auditor.Record(ctx, log)
}

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec, err := token.NewCodec(cfg.JWTSecret, "sweepdesk", cfg.TokenTTL)
	if err != nil {
		logger.Error("init token codec", slog.Any("error", err))
		os.Exit(1)
	}
	revoker := token.NewRevoker(redisClient)

	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(pool)
	rbacService := rbac.NewService(rbac.NewStore(pool))
	guard := rbac.Middleware{
		Codec:    codec,
		Resolver: rbacService,
		Revoker:  revoker,
		Auditor:  &meteredAuditor{auditor: auditLogger, metrics: metrics},
		Logger:   logger,
	}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, rbacService)
	authHandler := auth.NewHandler(logger, authService, rbacService, codec, revoker, cfg.IsProduction())

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rbacService, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, guard)

	enqueuer := jobs.NewEnqueuer(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("enqueuer close", slog.Any("error", err))
		}
	}()

	bookingsRepo := bookings.NewRepository(pool)
	bookingsService := bookings.NewService(bookingsRepo, rbacService, enqueuer)
	bookingsHandler := bookings.NewHandler(logger, bookingsService, guard)

	reviewsRepo := reviews.NewRepository(pool)
	reviewsService := reviews.NewService(reviewsRepo, bookingsRepo)
	reviewsHandler := reviews.NewHandler(logger, reviewsService, guard)

	rolesHandler := roles.NewHandler(logger, rbacService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		BookingsHandler: bookingsHandler,
		ReviewsHandler:  reviewsHandler,
		RolesHandler:    rolesHandler,
		JobHandler:      jobHandler,
		Guard:           guard,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
