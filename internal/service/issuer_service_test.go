package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/config"
	"github.com/spec-kit/sso-relay/internal/domain"
	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/observability"
	apperrors "github.com/spec-kit/sso-relay/pkg/util"
)

const testSecret = "service-test-signing-key-32-chars!"

var testEpoch = time.Unix(1_700_000_000, 0).UTC()

func newTestTokens(t *testing.T, now time.Time) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(config.AuthConfig{SharedSecret: testSecret, TokenTTLSeconds: 3600})
	require.NoError(t, err)
	return tm.WithClock(func() time.Time { return now })
}

func liveSession() *domain.PortalSession {
	return &domain.PortalSession{
		ID:        "sess-1",
		Identity:  domain.Identity{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: domain.RoleAdmin},
		CreatedAt: testEpoch.Add(-time.Minute),
		ExpiresAt: testEpoch.Add(time.Hour),
	}
}

func TestIssuerService_NoSessionRedirectsToLogin(t *testing.T) {
	svc := NewIssuerService(newTestTokens(t, testEpoch), IssuerConfig{LoginPath: "/login"}, IssuerDependencies{})

	requestURL := "https://portal.example.com/api/auth/token?returnTo=https%3A%2F%2Fapp.example.com%2Fdashboard"
	res, err := svc.Issue(context.Background(), IssueRequest{RequestURL: requestURL, ReturnTo: "https://app.example.com/dashboard"})
	require.NoError(t, err)
	assert.Equal(t, IssueRedirectLogin, res.Kind)
	assert.Empty(t, res.Token)

	loc, err := url.Parse(res.Location)
	require.NoError(t, err)
	assert.Equal(t, "https", loc.Scheme)
	assert.Equal(t, "portal.example.com", loc.Host)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, requestURL, loc.Query().Get(auth.ReturnToParam))
}

func TestIssuerService_ExpiredSessionRedirectsToLogin(t *testing.T) {
	svc := NewIssuerService(newTestTokens(t, testEpoch), IssuerConfig{}, IssuerDependencies{})
	sess := liveSession()
	sess.ExpiresAt = testEpoch

	res, err := svc.Issue(context.Background(), IssueRequest{Session: sess, ReturnTo: "https://app.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, IssueRedirectLogin, res.Kind)
	assert.Equal(t, "/login", res.Location)
}

func TestIssuerService_RedirectsBackWithToken(t *testing.T) {
	tokens := newTestTokens(t, testEpoch)
	dispatcher := events.NewInMemoryDispatcher(nil)
	var issued []events.Event
	dispatcher.Subscribe(events.EventTokenIssued, func(_ context.Context, e events.Event) error {
		issued = append(issued, e)
		return nil
	})
	metrics := observability.NewMetrics()
	svc := NewIssuerService(tokens, IssuerConfig{}, IssuerDependencies{Events: dispatcher, Metrics: metrics})

	res, err := svc.Issue(context.Background(), IssueRequest{
		Session:  liveSession(),
		ReturnTo: "https://app.example.com/reports?tab=2&sort=desc",
	})
	require.NoError(t, err)
	assert.Equal(t, IssueRedirectReturn, res.Kind)
	assert.Equal(t, time.Hour, res.ExpiresIn)

	loc, err := url.Parse(res.Location)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "/reports", loc.Path)
	assert.Equal(t, "2", loc.Query().Get("tab"))
	assert.Equal(t, "desc", loc.Query().Get("sort"))
	assert.Equal(t, res.Token, loc.Query().Get(auth.TokenParam))

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, liveSession().Identity, claims.Identity())

	require.Len(t, issued, 1)
	payload, ok := issued[0].Payload.(events.TokenIssuedPayload)
	require.True(t, ok)
	assert.Equal(t, "app.example.com", payload.ReturnHost)
	assert.Equal(t, claims.ID, payload.TokenID)
	assert.Equal(t, int64(1), metrics.Snapshot().Relay["issuer|redirect_return"])
}

func TestIssuerService_ReplacesExistingTokenParam(t *testing.T) {
	svc := NewIssuerService(newTestTokens(t, testEpoch), IssuerConfig{}, IssuerDependencies{})

	res, err := svc.Issue(context.Background(), IssueRequest{
		Session:  liveSession(),
		ReturnTo: "https://app.example.com/?token=stale",
	})
	require.NoError(t, err)

	loc, err := url.Parse(res.Location)
	require.NoError(t, err)
	values := loc.Query()[auth.TokenParam]
	require.Len(t, values, 1)
	assert.NotEqual(t, "stale", values[0])
}

func TestIssuerService_PayloadWithoutReturnTo(t *testing.T) {
	tokens := newTestTokens(t, testEpoch)
	svc := NewIssuerService(tokens, IssuerConfig{}, IssuerDependencies{})

	res, err := svc.Issue(context.Background(), IssueRequest{Session: liveSession()})
	require.NoError(t, err)
	assert.Equal(t, IssuePayload, res.Kind)
	assert.Empty(t, res.Location)
	assert.Equal(t, liveSession().Identity, res.Identity)

	_, err = tokens.Verify(res.Token)
	assert.NoError(t, err)
}

func TestIssuerService_RejectsInvalidReturnTo(t *testing.T) {
	svc := NewIssuerService(newTestTokens(t, testEpoch), IssuerConfig{
		AllowedReturnHosts: []string{"app.example.com", "Reports.Example.com"},
	}, IssuerDependencies{})

	for name, returnTo := range map[string]string{
		"relative":        "/dashboard",
		"javascript":      "javascript:alert(1)",
		"ftp":             "ftp://app.example.com/file",
		"no host":         "https:///path",
		"userinfo":        "https://evil@app.example.com/",
		"unlisted host":   "https://evil.example.com/",
		"unparseable":     "https://app.example.com/%zz",
		"scheme relative": "//app.example.com/",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := svc.Issue(context.Background(), IssueRequest{Session: liveSession(), ReturnTo: returnTo})
			require.Error(t, err)
			assert.Nil(t, res)

			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
			assert.Equal(t, "invalid returnTo URL", domainErr.Message)
		})
	}

	res, err := svc.Issue(context.Background(), IssueRequest{Session: liveSession(), ReturnTo: "http://reports.example.com:8443/x"})
	require.NoError(t, err)
	assert.Equal(t, IssueRedirectReturn, res.Kind)
}

func TestIssuerService_SigningFailureIsInternal(t *testing.T) {
	svc := NewIssuerService(&auth.TokenManager{}, IssuerConfig{}, IssuerDependencies{})
	sess := liveSession()
	sess.ExpiresAt = time.Now().Add(time.Hour)

	_, err := svc.Issue(context.Background(), IssueRequest{Session: sess})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrSigningKeyUnavailable)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
}

func TestIssuerService_ClaimsComeOnlyFromSession(t *testing.T) {
	tokens := newTestTokens(t, testEpoch)
	svc := NewIssuerService(tokens, IssuerConfig{}, IssuerDependencies{})
	sess := liveSession()
	sess.Identity.Role = domain.RoleUser

	res, err := svc.Issue(context.Background(), IssueRequest{
		Session:    sess,
		ReturnTo:   "https://app.example.com/admin?role=admin&id=u-9",
		RequestURL: "https://portal.example.com/api/auth/token?role=admin",
	})
	require.NoError(t, err)

	loc, err := url.Parse(res.Location)
	require.NoError(t, err)
	claims, err := tokens.Verify(loc.Query().Get(auth.TokenParam))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestIssuerService_KeepsReturnToQueryVerbatim(t *testing.T) {
	svc := NewIssuerService(newTestTokens(t, testEpoch), IssuerConfig{}, IssuerDependencies{})

	for name, returnTo := range map[string]string{
		"unsorted":     "https://app.example.com/r?z=1&a=b%20c",
		"stale token":  "https://app.example.com/r?z=1&token=stale&a=2",
		"no query":     "https://app.example.com/r",
		"plus encoded": "https://app.example.com/search?q=a+b&sort=desc",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := svc.Issue(context.Background(), IssueRequest{Session: liveSession(), ReturnTo: returnTo})
			require.NoError(t, err)

			original, _ := auth.StripToken(mustURL(t, returnTo))
			want := original.String()
			if original.RawQuery == "" {
				want += "?"
			} else {
				want += "&"
			}
			assert.Equal(t, want+auth.TokenParam+"="+res.Token, res.Location)
		})
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
