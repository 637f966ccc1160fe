package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sso-relay/internal/domain"
)

func TestHasRole(t *testing.T) {
	admin := &Claims{Role: domain.RoleAdmin}
	user := &Claims{Role: domain.RoleUser}
	auditor := &Claims{Role: domain.Role("auditor")}

	assert.True(t, IsAdmin(admin))
	assert.False(t, IsAdmin(user))
	assert.True(t, HasRole(user, domain.RoleAdmin, domain.RoleUser))
	assert.False(t, HasRole(nil, domain.RoleUser))
	assert.False(t, HasRole(auditor, domain.RoleAdmin, domain.RoleUser), "unknown roles are never reinterpreted")
	assert.True(t, HasRole(auditor, domain.Role("auditor")))
}

func TestRequireRole_WithoutClaimsIsUnauthorized(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", RequireRole("/forbidden", domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
}
