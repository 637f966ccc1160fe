package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sso-relay/internal/api/dto"
	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/service"
)

// LoginHandler runs interactive portal login and logout.
type LoginHandler struct {
	auth    *service.AuthService
	cookies *auth.CookieManager
}

// NewLoginHandler constructs handler. cookies manages the portal session cookie.
func NewLoginHandler(authService *service.AuthService, cookies *auth.CookieManager) *LoginHandler {
	return &LoginHandler{auth: authService, cookies: cookies}
}

// Show handles GET /login. A caller that is already signed in is sent on to returnTo.
func (h *LoginHandler) Show(c *fiber.Ctx) error {
	returnTo := c.Query(auth.ReturnToParam)

	sess, err := h.auth.Session(c.UserContext(), h.cookies.Read(c))
	if err != nil {
		return err
	}
	if sess != nil {
		if target, ok := localReturnTo(c, returnTo); ok {
			return c.Redirect(target, http.StatusFound)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{
			"authenticated": true,
			"user":          dto.NewUserSummary(sess.Identity),
		}})
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"authenticated": false,
		"returnTo":      returnTo,
	}})
}

// Login handles POST /login.
func (h *LoginHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}
	if req.ReturnTo == "" {
		req.ReturnTo = c.Query(auth.ReturnToParam)
	}

	sess, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return err
	}

	h.cookies.Set(c, sess.ID, h.auth.SessionTTL())

	if target, ok := localReturnTo(c, req.ReturnTo); ok {
		return c.Redirect(target, http.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		User:      dto.NewUserSummary(sess.Identity),
		ExpiresAt: sess.ExpiresAt,
	}})
}

// Logout handles POST /logout. Relay tokens already handed out stay valid until they expire.
func (h *LoginHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), h.cookies.Read(c)); err != nil {
		return err
	}
	h.cookies.Clear(c)
	return c.SendStatus(http.StatusNoContent)
}

// localReturnTo accepts a continuation that stays on the portal: a rooted
// relative path, or an absolute http(s) URL on the request's own host.
func localReturnTo(c *fiber.Ctx, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.User != nil {
		return "", false
	}
	if !u.IsAbs() {
		if u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
			return "", false
		}
		return u.String(), true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(u.Host, c.Hostname()) {
		return "", false
	}
	return u.String(), true
}
