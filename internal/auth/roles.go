package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sso-relay/internal/domain"
	apperrors "github.com/spec-kit/sso-relay/pkg/util"
)

// RequireRole runs after the acceptor and redirects callers whose role is not
// in allowed to forbiddenPath. It never issues a bare 403.
func RequireRole(forbiddenPath string, allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("session required")
		}
		if len(allowed) == 0 || HasRole(claims, allowed...) {
			return c.Next()
		}
		return c.Redirect(forbiddenPath, fiber.StatusFound)
	}
}

// RequireAuthenticated guards handlers that must only run behind the acceptor.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ClaimsFromContext(c); !ok {
			return apperrors.NewUnauthorized("session required")
		}
		return c.Next()
	}
}

// HasRole reports whether the claims carry one of allowed. Roles compare exactly.
func HasRole(claims *Claims, allowed ...domain.Role) bool {
	if claims == nil {
		return false
	}
	return claims.Role.In(allowed...)
}

// IsAdmin is shorthand for HasRole(claims, domain.RoleAdmin).
func IsAdmin(claims *Claims) bool {
	return HasRole(claims, domain.RoleAdmin)
}
