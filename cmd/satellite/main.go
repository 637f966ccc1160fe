package main

import (
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
	logger = logger.With(zap.String("component", "satellite"))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	acceptor, err := auth.NewAcceptor(tokens, auth.AcceptorConfig{
		IssuerURL:   cfg.Satellite.IssuerURL,
		TokenPath:   cfg.Portal.TokenPath,
		CookieName:  cfg.Satellite.SessionCookieName,
		Secure:      cfg.App.IsProduction(),
		// the forbidden page must render without a session
		PublicPaths: append(append([]string{}, cfg.Satellite.PublicPaths...), cfg.Satellite.ForbiddenPath),
	}, auth.AcceptorDependencies{
		Logger:  logger,
		Metrics: metrics,
		Events:  dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to init acceptor", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterSatelliteRoutes(app, httptransport.SatelliteRouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.HealthDependencies{Metrics: metrics}),
		Pages:         handlers.NewSatelliteHandler(acceptor.Cookies(), tokens.Now),
		Acceptor:      acceptor,
		ForbiddenPath: cfg.Satellite.ForbiddenPath,
	})

	go func() {
		logger.Info("satellite listening", zap.String("addr", cfg.App.Addr()))
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
