package auth

import "strings"

// PathMatcher is an allow-list of request paths that bypass the acceptor.
// A pattern ending in "*" matches by prefix; anything else must match exactly.
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathMatcher compiles patterns such as "/static/*" or "/favicon.ico".
func NewPathMatcher(patterns []string) PathMatcher {
	m := PathMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			m.prefixes = append(m.prefixes, prefix)
			if trimmed := strings.TrimSuffix(prefix, "/"); trimmed != "" && trimmed != prefix {
				m.exact[trimmed] = struct{}{}
			}
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

// Match reports whether path is on the allow-list.
func (m PathMatcher) Match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
