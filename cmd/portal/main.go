package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sso-relay/internal/api/http"
	"github.com/spec-kit/sso-relay/internal/api/http/handlers"
	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/config"
	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/observability"
	"github.com/spec-kit/sso-relay/internal/persistence"
	"github.com/spec-kit/sso-relay/internal/repository"
	"github.com/spec-kit/sso-relay/internal/service"
	"github.com/spec-kit/sso-relay/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("component", "portal"))

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

	var (
		redis    *persistence.Redis
		sessions repository.SessionRepository
	)
	switch cfg.Portal.SessionStore {
	case "memory":
		logger.Warn("portal sessions kept in memory; do not run more than one portal instance")
		sessions = repository.NewMemorySessionRepository()
	default:
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		sessions = repository.NewRedisSessionRepository(redis.Client)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	authService := service.NewAuthService(tokens.TTL(), service.AuthDependencies{
		Verifier: service.NewPasswordVerifier(repository.NewUserRepository(pg.PoolHandle())),
		Sessions: sessions,
		Events:   dispatcher,
		Logger:   logger,
	})
	issuerService := service.NewIssuerService(tokens, service.IssuerConfig{
		LoginPath:          cfg.Portal.LoginPath,
		AllowedReturnHosts: cfg.Auth.AllowedReturnHosts,
	}, service.IssuerDependencies{
		Events:  dispatcher,
		Metrics: metrics,
		Logger:  logger,
	})

	portalCookies := auth.NewCookieManager(cfg.Portal.SessionCookieName, cfg.App.IsProduction())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterPortalRoutes(app, httptransport.PortalRouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.HealthDependencies{
			Postgres: pg,
			Redis:    redis,
			Metrics:  metrics,
		}),
		Token:     handlers.NewTokenHandler(issuerService, authService, portalCookies),
		Login:     handlers.NewLoginHandler(authService, portalCookies),
		TokenPath: cfg.Portal.TokenPath,
		LoginPath: cfg.Portal.LoginPath,
	})

	go func() {
		logger.Info("portal listening", zap.String("addr", cfg.App.Addr()))
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
