package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/metrics"
	"github.com/goout-id/goout/pkg/response"
)

// IdentityLogin runs an external identity provider login.
type IdentityLogin interface {
	Begin(ctx context.Context, returnURL string) (string, error)
	Complete(ctx context.Context, state, code string) (iauth.Identity, string, error)
}

// OIDCHandler signs users in through an OpenID Connect provider.
type OIDCHandler struct {
	provider string
	login    IdentityLogin
	users    *services.UserService
	jwt      *iauth.JWTService
}

func NewOIDCHandler(provider string, login IdentityLogin, users *services.UserService, jwt *iauth.JWTService) *OIDCHandler {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		provider = "oidc"
	}
	return &OIDCHandler{provider: provider, login: login, users: users, jwt: jwt}
}

type oidcCallbackResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
	User      *models.User `json:"user"`
	ReturnURL string       `json:"returnUrl,omitempty"`
}

// GET /api/auth/oidc/login
func (h *OIDCHandler) Login(c *gin.Context) {
	redirect, err := h.login.Begin(requestContext(c), c.Query("returnUrl"))
	if err != nil {
		response.Error(c, errors.Wrap(err, "Failed to start sign-in"))
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

// GET /api/auth/oidc/callback
func (h *OIDCHandler) Callback(c *gin.Context) {
	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		metrics.AuthAttempts.WithLabelValues("oidc", "rejected").Inc()
		response.Error(c, iauth.ErrIdentityRejected.WithMessage("Identity provider returned "+providerErr))
		return
	}

	ctx := requestContext(c)
	identity, returnURL, err := h.login.Complete(ctx, c.Query("state"), c.Query("code"))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("oidc", "rejected").Inc()
		response.Error(c, err)
		return
	}

	user, err := h.users.SignInExternal(ctx, services.ExternalIdentity{
		Provider:      h.provider,
		Subject:       identity.Subject,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		FullName:      identity.Name,
		Picture:       identity.Picture,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	if err != nil {
		response.Error(c, errors.Wrap(err, "Failed to issue access token"))
		return
	}

	response.Success(c, http.StatusOK, oidcCallbackResponse{
		Token:     token,
		ExpiresIn: int(h.jwt.TTL().Seconds()),
		User:      user,
		ReturnURL: returnURL,
	})
}
