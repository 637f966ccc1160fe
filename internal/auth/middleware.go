package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sso-relay/internal/domain"
	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/observability"
	apperrors "github.com/spec-kit/sso-relay/pkg/util"
)

const (
	claimsKey = "relay_claims"

	// TokenParam is the query parameter carrying a relay token.
	TokenParam = "token"
	// ReturnToParam is the query parameter carrying the continuation URL.
	ReturnToParam = "returnTo"
)

// Decision is the tagged result of one acceptor check.
type Decision int

const (
	// DecisionContinue hands the request to the next check.
	DecisionContinue Decision = iota
	// DecisionPass lets the request through with verified claims.
	DecisionPass
	// DecisionSetCookieAndRedirect stores the URL token as the local session and drops it from the URL.
	DecisionSetCookieAndRedirect
	// DecisionRedirectToIssuer sends the browser to the Issuer with returnTo set.
	DecisionRedirectToIssuer
)

func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "continue"
	case DecisionPass:
		return "pass"
	case DecisionSetCookieAndRedirect:
		return "set_cookie_and_redirect"
	case DecisionRedirectToIssuer:
		return "redirect_to_issuer"
	default:
		return "unknown"
	}
}

// Outcome is what the acceptor wants done with a request.
type Outcome struct {
	Decision      Decision
	Claims        *Claims
	Location      string
	SessionToken  string
	SessionMaxAge time.Duration
	// DiscardCookie is set when a local session cookie was present but failed verification.
	DiscardCookie bool
}

// AcceptorConfig configures the per-request gate of a satellite application.
type AcceptorConfig struct {
	IssuerURL   string
	TokenPath   string
	CookieName  string
	Secure      bool
	PublicPaths []string
}

// AcceptorDependencies bundles optional collaborators.
type AcceptorDependencies struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Events  events.Dispatcher
}

// Acceptor establishes local sessions from relay tokens.
type Acceptor struct {
	tokens    *TokenManager
	issuerURL *url.URL
	cookies   *CookieManager
	public    PathMatcher
	logger    *zap.Logger
	metrics   *observability.Metrics
	events    events.Dispatcher
	checks    []check
}

type gateInput struct {
	cookie     string
	requestURL *url.URL
	discard    bool
}

type check func(in *gateInput) (Outcome, error)

// NewAcceptor builds the gate. The issuer URL must be an absolute http(s) URL.
func NewAcceptor(tokens *TokenManager, cfg AcceptorConfig, deps AcceptorDependencies) (*Acceptor, error) {
	if tokens == nil {
		return nil, ErrSigningKeyUnavailable
	}
	issuer, err := url.Parse(cfg.IssuerURL)
	if err != nil || (issuer.Scheme != "http" && issuer.Scheme != "https") || issuer.Host == "" {
		return nil, errors.New("SSO_URL must be an absolute http(s) URL")
	}
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = "/api/auth/token"
	}
	issuer = issuer.JoinPath(tokenPath)

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "app-session"
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Acceptor{
		tokens:    tokens,
		issuerURL: issuer,
		cookies:   NewCookieManager(cookieName, cfg.Secure),
		public:    NewPathMatcher(cfg.PublicPaths),
		logger:    logger,
		metrics:   deps.Metrics,
		events:    deps.Events,
	}
	a.checks = []check{a.checkCookie, a.checkURLToken, a.redirectToIssuer}
	return a, nil
}

// Cookies exposes the local session cookie manager, e.g. for logout.
func (a *Acceptor) Cookies() *CookieManager {
	return a.cookies
}

// Evaluate runs the ordered checks; the first non-continue outcome wins.
func (a *Acceptor) Evaluate(cookie string, requestURL *url.URL) (Outcome, error) {
	in := &gateInput{cookie: cookie, requestURL: requestURL}
	for _, chk := range a.checks {
		out, err := chk(in)
		if err != nil {
			return Outcome{}, err
		}
		if out.Decision != DecisionContinue {
			out.DiscardCookie = in.discard
			return out, nil
		}
	}
	return Outcome{}, errors.New("acceptor: no check produced a decision")
}

func (a *Acceptor) checkCookie(in *gateInput) (Outcome, error) {
	if in.cookie == "" {
		return Outcome{Decision: DecisionContinue}, nil
	}
	claims, err := a.tokens.Verify(in.cookie)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			a.logger.Debug("local session rejected", zap.Error(err))
			in.discard = true
			return Outcome{Decision: DecisionContinue}, nil
		}
		return Outcome{}, fmt.Errorf("verify session cookie: %w", err)
	}
	return Outcome{Decision: DecisionPass, Claims: claims}, nil
}

func (a *Acceptor) checkURLToken(in *gateInput) (Outcome, error) {
	raw := in.requestURL.Query().Get(TokenParam)
	if raw == "" {
		return Outcome{Decision: DecisionContinue}, nil
	}
	claims, err := a.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			a.logger.Debug("url token rejected", zap.Error(err))
			return Outcome{Decision: DecisionContinue}, nil
		}
		return Outcome{}, fmt.Errorf("verify url token: %w", err)
	}
	stripped, _ := StripToken(in.requestURL)
	return Outcome{
		Decision:      DecisionSetCookieAndRedirect,
		Claims:        claims,
		Location:      stripped.String(),
		SessionToken:  raw,
		SessionMaxAge: claims.Remaining(a.tokens.Now()),
	}, nil
}

func (a *Acceptor) redirectToIssuer(in *gateInput) (Outcome, error) {
	returnTo, _ := StripToken(in.requestURL)
	target := *a.issuerURL
	q := target.Query()
	q.Set(ReturnToParam, returnTo.String())
	target.RawQuery = q.Encode()
	return Outcome{Decision: DecisionRedirectToIssuer, Location: target.String()}, nil
}

// Handle is the fiber middleware form of the gate.
func (a *Acceptor) Handle(c *fiber.Ctx) error {
	if a.public.Match(c.Path()) {
		return c.Next()
	}

	requestURL, err := url.Parse(RequestURL(c))
	if err != nil {
		return apperrors.NewValidationError("invalid request URL", nil)
	}

	out, err := a.Evaluate(a.cookies.Read(c), requestURL)
	if err != nil {
		a.logger.Error("relay verification error", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	a.metrics.RecordRelay("acceptor", out.Decision.String())

	if out.DiscardCookie && out.Decision != DecisionSetCookieAndRedirect {
		a.cookies.Clear(c)
		events.Publish(c.UserContext(), a.events, events.NewEvent(events.EventSessionDiscarded, out.identity(),
			events.SessionDiscardedPayload{Host: requestURL.Host, Path: requestURL.Path}))
	}

	switch out.Decision {
	case DecisionPass:
		c.Locals(claimsKey, out.Claims)
		return c.Next()
	case DecisionSetCookieAndRedirect:
		a.cookies.Set(c, out.SessionToken, out.SessionMaxAge)
		a.logger.Info("local session established",
			zap.String("email", out.Claims.Email),
			zap.String("path", requestURL.Path))
		events.Publish(c.UserContext(), a.events, events.NewEvent(events.EventSessionEstablished, out.identity(),
			events.SessionEstablishedPayload{TokenID: out.Claims.ID, Host: requestURL.Host, Path: requestURL.Path}))
		return c.Redirect(out.Location, fiber.StatusFound)
	default:
		return c.Redirect(out.Location, fiber.StatusFound)
	}
}

func (o Outcome) identity() domain.Identity {
	if o.Claims == nil {
		return domain.Identity{}
	}
	return o.Claims.Identity()
}

// StripToken removes every token parameter from u, keeping the rest of the
// query verbatim. It reports whether anything was removed; a URL without a
// token is returned unchanged.
func StripToken(u *url.URL) (*url.URL, bool) {
	if u.RawQuery == "" {
		return u, false
	}
	parts := strings.Split(u.RawQuery, "&")
	kept := parts[:0:0]
	removed := false
	for _, part := range parts {
		key, _, _ := strings.Cut(part, "=")
		if name, err := url.QueryUnescape(key); err == nil && name == TokenParam {
			removed = true
			continue
		}
		kept = append(kept, part)
	}
	if !removed {
		return u, false
	}
	out := *u
	out.RawQuery = strings.Join(kept, "&")
	return &out, true
}

// RequestURL rebuilds the absolute URL of the current request from the parsed
// URI, so origin-form and absolute-form request lines yield the same result.
func RequestURL(c *fiber.Ctx) string {
	return c.BaseURL() + string(c.Request().URI().RequestURI())
}

// ClaimsFromContext returns the verified claims the acceptor attached to the request.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
