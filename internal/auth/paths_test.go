package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher(t *testing.T) {
	m := NewPathMatcher([]string{"/static/*", "/favicon.ico", " ", "/health/*", "/api/auth/*"})

	for _, p := range []string{"/static", "/static/", "/static/css/site.css", "/favicon.ico", "/health/live", "/api/auth/token"} {
		assert.Truef(t, m.Match(p), "expected %q to bypass", p)
	}
	for _, p := range []string{"/", "/admin", "/staticfiles", "/favicon.ico/x", "/api/authz"} {
		assert.Falsef(t, m.Match(p), "expected %q to be gated", p)
	}
}

func TestPathMatcher_Empty(t *testing.T) {
	assert.False(t, NewPathMatcher(nil).Match("/"))
}
