package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sso-relay/internal/api/dto"
	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/service"
)

// TokenHandler exposes the Token Issuer.
type TokenHandler struct {
	issuer  *service.IssuerService
	auth    *service.AuthService
	cookies *auth.CookieManager
}

// NewTokenHandler constructs handler. cookies reads the portal session cookie.
func NewTokenHandler(issuer *service.IssuerService, authService *service.AuthService, cookies *auth.CookieManager) *TokenHandler {
	return &TokenHandler{issuer: issuer, auth: authService, cookies: cookies}
}

// Get handles GET /api/auth/token?returnTo=.
func (h *TokenHandler) Get(c *fiber.Ctx) error {
	return h.issue(c, c.Query(auth.ReturnToParam), auth.RequestURL(c))
}

// Post handles POST /api/auth/token with a JSON body {returnTo?}. The body's
// returnTo is folded into the continuation so login resumes the same request.
func (h *TokenHandler) Post(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if len(c.Body()) == 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.ReturnTo == "" {
		req.ReturnTo = c.Query(auth.ReturnToParam)
	}

	continuation := auth.RequestURL(c)
	if req.ReturnTo != "" {
		if u, err := url.Parse(continuation); err == nil {
			q := u.Query()
			q.Set(auth.ReturnToParam, req.ReturnTo)
			u.RawQuery = q.Encode()
			continuation = u.String()
		}
	}
	return h.issue(c, req.ReturnTo, continuation)
}

func (h *TokenHandler) issue(c *fiber.Ctx, returnTo, requestURL string) error {
	sess, err := h.auth.Session(c.UserContext(), h.cookies.Read(c))
	if err != nil {
		return err
	}

	res, err := h.issuer.Issue(c.UserContext(), service.IssueRequest{
		Session:    sess,
		ReturnTo:   returnTo,
		RequestURL: requestURL,
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	switch res.Kind {
	case service.IssueRedirectLogin, service.IssueRedirectReturn:
		return c.Redirect(res.Location, http.StatusFound)
	default:
		return c.JSON(dto.TokenResponse{
			Token:     res.Token,
			User:      dto.NewUserSummary(res.Identity),
			ExpiresIn: int64(res.ExpiresIn.Seconds()),
		})
	}
}
