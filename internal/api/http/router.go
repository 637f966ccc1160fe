package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sso-relay/internal/api/http/handlers"
	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/domain"
)

// PortalRouteConfig bundles dependencies for the identity-owning application.
type PortalRouteConfig struct {
	Health    *handlers.HealthHandler
	Token     *handlers.TokenHandler
	Login     *handlers.LoginHandler
	TokenPath string
	LoginPath string
}

// SatelliteRouteConfig bundles dependencies for a satellite application.
type SatelliteRouteConfig struct {
	Health        *handlers.HealthHandler
	Pages         *handlers.SatelliteHandler
	Acceptor      *auth.Acceptor
	ForbiddenPath string
}

func registerHealthRoutes(app *fiber.App, h *handlers.HealthHandler) {
	health := app.Group("/health")
	health.Get("/live", h.Live)
	health.Get("/ready", h.Ready)
	health.Get("/metrics", h.Metrics)
}

// RegisterPortalRoutes wires the Issuer, login and probes.
func RegisterPortalRoutes(app *fiber.App, cfg PortalRouteConfig) {
	registerHealthRoutes(app, cfg.Health)

	app.Get(cfg.TokenPath, cfg.Token.Get)
	app.Post(cfg.TokenPath, cfg.Token.Post)

	app.Get(cfg.LoginPath, cfg.Login.Show)
	app.Post(cfg.LoginPath, cfg.Login.Login)
	app.Post("/logout", cfg.Login.Logout)
}

// RegisterSatelliteRoutes puts every route behind the acceptor. Public paths
// are skipped by the acceptor itself.
func RegisterSatelliteRoutes(app *fiber.App, cfg SatelliteRouteConfig) {
	app.Use(cfg.Acceptor.Handle)

	registerHealthRoutes(app, cfg.Health)

	forbiddenPath := cfg.ForbiddenPath
	if forbiddenPath == "" {
		forbiddenPath = "/forbidden"
	}
	app.Get(forbiddenPath, cfg.Pages.Forbidden)
	app.Get("/logout", cfg.Pages.Logout)
	app.Post("/logout", cfg.Pages.Logout)

	app.Get("/", auth.RequireAuthenticated(), cfg.Pages.Home)
	app.Get("/me", auth.RequireAuthenticated(), cfg.Pages.Me)

	dashboard := app.Group("/dashboard", auth.RequireAuthenticated())
	dashboard.Get("", cfg.Pages.Dashboard)
	dashboard.Get("/*", cfg.Pages.Dashboard)

	admin := app.Group("/admin", auth.RequireRole(forbiddenPath, domain.RoleAdmin))
	admin.Get("", cfg.Pages.Admin)
	admin.Get("/*", cfg.Pages.Admin)
}
