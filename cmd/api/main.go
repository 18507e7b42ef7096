package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/lead-service/internal/api/http"
	"github.com/spec-kit/lead-service/internal/api/http/handlers"
	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/config"
	"github.com/spec-kit/lead-service/internal/events"
	"github.com/spec-kit/lead-service/internal/observability"
	"github.com/spec-kit/lead-service/internal/persistence"
	"github.com/spec-kit/lead-service/internal/repository"
	"github.com/spec-kit/lead-service/internal/scoring"
	"github.com/spec-kit/lead-service/internal/service"
	"github.com/spec-kit/lead-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	var remote scoring.RemoteScorer
	if client := scoring.NewClient(cfg.Scorer); client != nil {
		remote = client
	}
	scorer := scoring.NewScorer(remote, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	dispatcher := events.NewInMemoryDispatcher()
	events.NewRedisMirror(redis.Client, logger).Register(dispatcher)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo:   leadRepo,
		AuditRepo:  auditRepo,
		Scorer:     scorer,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		LeadRepo:   leadRepo,
		UserRepo:   userRepo,
		AuditRepo:  auditRepo,
		Dispatcher: dispatcher,
	})
	progressService := service.NewProgressService(service.ProgressDependencies{
		LeadRepo:   leadRepo,
		AuditRepo:  auditRepo,
		Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, userService),
		Leads:          handlers.NewLeadsHandler(leadService),
		Workflow:       handlers.NewLeadWorkflowHandler(assignmentService, progressService, leadService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
