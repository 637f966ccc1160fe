package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieManager writes and clears one named session cookie.
// Cookies are HttpOnly, SameSite=Lax and scoped to path "/".
type CookieManager struct {
	name   string
	secure bool
}

// NewCookieManager creates a manager for the given cookie name.
func NewCookieManager(name string, secure bool) *CookieManager {
	return &CookieManager{name: name, secure: secure}
}

// Name returns the cookie name.
func (m *CookieManager) Name() string {
	return m.name
}

// Read returns the cookie value or "" when absent.
func (m *CookieManager) Read(c *fiber.Ctx) string {
	return c.Cookies(m.name)
}

// Set stores value with a max age rounded down to whole seconds, never below one.
func (m *CookieManager) Set(c *fiber.Ctx, value string, maxAge time.Duration) {
	seconds := int(maxAge / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   seconds,
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear instructs the client to delete the cookie.
func (m *CookieManager) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
