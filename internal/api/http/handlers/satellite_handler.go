package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sso-relay/internal/api/dto"
	"github.com/spec-kit/sso-relay/internal/auth"
	apperrors "github.com/spec-kit/sso-relay/pkg/util"
)

// ExpiringSoonWindow flags sessions that will need a fresh relay shortly.
const ExpiringSoonWindow = 30 * time.Minute

// SatelliteHandler serves the pages of a satellite application behind the acceptor.
type SatelliteHandler struct {
	cookies *auth.CookieManager
	now     func() time.Time
}

// NewSatelliteHandler constructs handler. cookies manages the local session cookie.
func NewSatelliteHandler(cookies *auth.CookieManager, now func() time.Time) *SatelliteHandler {
	if now == nil {
		now = time.Now
	}
	return &SatelliteHandler{cookies: cookies, now: now}
}

// Home handles GET /.
func (h *SatelliteHandler) Home(c *fiber.Ctx) error {
	return h.page(c, "home")
}

// Dashboard handles GET /dashboard.
func (h *SatelliteHandler) Dashboard(c *fiber.Ctx) error {
	return h.page(c, "dashboard")
}

// Admin handles GET /admin.
func (h *SatelliteHandler) Admin(c *fiber.Ctx) error {
	return h.page(c, "admin")
}

// Me handles GET /me.
func (h *SatelliteHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	remaining := claims.Remaining(h.now())
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		User:         dto.NewUserSummary(claims.Identity()),
		ExpiresAt:    claims.ExpiresAt.Time.UTC(),
		ExpiringSoon: remaining < ExpiringSoonWindow,
	}})
}

// Logout handles /logout by discarding the local session only.
func (h *SatelliteHandler) Logout(c *fiber.Ctx) error {
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "logged_out"}})
}

// Forbidden handles GET /forbidden, the target of the role gate.
func (h *SatelliteHandler) Forbidden(c *fiber.Ctx) error {
	return apperrors.NewForbidden("your role does not grant access to this page")
}

func (h *SatelliteHandler) page(c *fiber.Ctx, name string) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"page":    name,
		"user":    dto.NewUserSummary(claims.Identity()),
		"isAdmin": auth.IsAdmin(claims),
	}})
}
