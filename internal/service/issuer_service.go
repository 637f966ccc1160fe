package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/domain"
	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/observability"
	apperrors "github.com/spec-kit/sso-relay/pkg/util"
)

// IssueKind tells the transport how to answer an issue request.
type IssueKind int

const (
	// IssueRedirectLogin sends the caller to interactive login.
	IssueRedirectLogin IssueKind = iota
	// IssueRedirectReturn sends the caller back to returnTo with the token attached.
	IssueRedirectReturn
	// IssuePayload answers with the token as a structured body.
	IssuePayload
)

func (k IssueKind) String() string {
	switch k {
	case IssueRedirectLogin:
		return "redirect_login"
	case IssueRedirectReturn:
		return "redirect_return"
	case IssuePayload:
		return "payload"
	default:
		return "unknown"
	}
}

// IssueRequest is everything the Issuer looks at. Only Session contributes claims.
type IssueRequest struct {
	Session    *domain.PortalSession
	ReturnTo   string
	RequestURL string
}

// IssueResult is the Issuer's answer.
type IssueResult struct {
	Kind      IssueKind
	Location  string
	Token     string
	Identity  domain.Identity
	ExpiresIn time.Duration
}

// IssuerConfig configures the Issuer.
type IssuerConfig struct {
	LoginPath          string
	AllowedReturnHosts []string
}

// IssuerService mints relay tokens for callers holding a portal session.
type IssuerService struct {
	tokens       *auth.TokenManager
	loginPath    string
	allowedHosts map[string]struct{}
	events       events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// IssuerDependencies bundles optional collaborators.
type IssuerDependencies struct {
	Events  events.Dispatcher
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewIssuerService builds the service.
func NewIssuerService(tokens *auth.TokenManager, cfg IssuerConfig, deps IssuerDependencies) *IssuerService {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	var allowed map[string]struct{}
	if len(cfg.AllowedReturnHosts) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedReturnHosts))
		for _, h := range cfg.AllowedReturnHosts {
			allowed[strings.ToLower(h)] = struct{}{}
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuerService{
		tokens:       tokens,
		loginPath:    loginPath,
		allowedHosts: allowed,
		events:       deps.Events,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

// Issue decides between login redirect, return redirect and payload.
func (s *IssuerService) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if req.Session == nil || req.Session.Expired(s.tokens.Now()) {
		s.logger.Debug("no portal session, redirecting to login")
		s.metrics.RecordRelay("issuer", IssueRedirectLogin.String())
		return &IssueResult{Kind: IssueRedirectLogin, Location: s.loginLocation(req.RequestURL)}, nil
	}

	var target *url.URL
	if req.ReturnTo != "" {
		parsed, err := s.parseReturnTo(req.ReturnTo)
		if err != nil {
			s.logger.Info("rejected returnTo", zap.String("email", req.Session.Identity.Email))
			return nil, err
		}
		target = parsed
	}

	token, claims, err := s.tokens.Issue(req.Session.Identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	result := &IssueResult{
		Kind:      IssuePayload,
		Token:     token,
		Identity:  claims.Identity(),
		ExpiresIn: s.tokens.TTL(),
	}
	payload := events.TokenIssuedPayload{TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}

	if target != nil {
		target, _ = auth.StripToken(target)
		target = appendToken(target, token)

		result.Kind = IssueRedirectReturn
		result.Location = target.String()
		payload.ReturnHost = target.Host
	}

	s.logger.Info("relay token issued",
		zap.String("email", claims.Email),
		zap.String("kind", result.Kind.String()),
		zap.String("return_host", payload.ReturnHost))
	s.metrics.RecordRelay("issuer", result.Kind.String())
	events.Publish(ctx, s.events, events.NewEvent(events.EventTokenIssued, claims.Identity(), payload))

	return result, nil
}

// parseReturnTo accepts only absolute http(s) URLs, optionally restricted to an allow-list of hosts.
func (s *IssuerService) parseReturnTo(raw string) (*url.URL, error) {
	invalid := apperrors.NewValidationError("invalid returnTo URL", nil)

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || u.User != nil {
		return nil, invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalid
	}
	if s.allowedHosts != nil {
		if _, ok := s.allowedHosts[strings.ToLower(u.Hostname())]; !ok {
			return nil, invalid
		}
	}
	return u, nil
}

// appendToken adds the token parameter after the existing query, which is kept byte for byte.
func appendToken(u *url.URL, token string) *url.URL {
	out := *u
	param := auth.TokenParam + "=" + url.QueryEscape(token)
	if out.RawQuery == "" {
		out.RawQuery = param
	} else {
		out.RawQuery += "&" + param
	}
	return &out
}

// loginLocation points at the portal login page and carries the original
// request URL so login can resume the relay.
func (s *IssuerService) loginLocation(requestURL string) string {
	login := &url.URL{Path: s.loginPath}
	if origin, err := url.Parse(requestURL); err == nil && origin.IsAbs() {
		login.Scheme = origin.Scheme
		login.Host = origin.Host
	}
	if requestURL != "" {
		login.RawQuery = url.Values{auth.ReturnToParam: {requestURL}}.Encode()
	}
	return login.String()
}
