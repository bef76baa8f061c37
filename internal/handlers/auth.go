package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/response"
)

// AuthHandler exposes registration, email verification and password login.
type AuthHandler struct {
	users    *services.UserService
	verifier *verification.Service
	jwt      *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, verifier *verification.Service, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, verifier: verifier, jwt: jwt}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required,notblank,max=191"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
	User      *models.User `json:"user"`
}

// ticketResponse carries only the session token; the address is not echoed back.
type ticketResponse struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, ticket, err := h.users.Register(requestContext(c), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, registerResponse{User: user, Token: ticket.Token})
}

// GET /api/auth/resend?id=<base64 email>
func (h *AuthHandler) IssueTicket(c *gin.Context) {
	email, ok := decodeEmailParam(c.Query("id"))
	if !ok {
		response.Error(c, errors.NewBadRequest("id must be a base64 encoded email address"))
		return
	}

	ticket, err := h.verifier.IssueOrRefreshTicket(requestContext(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, ticketResponse{Token: ticket.Token, Expires: ticket.Expires})
}

// POST /api/auth/resend?token=<session token>
func (h *AuthHandler) Resend(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, errors.NewBadRequest("token is required"))
		return
	}

	dispatch, err := h.verifier.DispatchVerificationEmail(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dispatch)
}

// POST /api/auth/verify?token=<verification token>
func (h *AuthHandler) Verify(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, errors.NewBadRequest("token is required"))
		return
	}

	user, err := h.verifier.ConsumeVerificationToken(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueToken(c, user)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

func (h *AuthHandler) issueToken(c *gin.Context, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		response.Error(c, errors.Wrap(err, "Failed to issue access token"))
		return
	}

	response.Success(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int(h.jwt.TTL().Seconds()),
		User:      user,
	})
}

// decodeEmailParam accepts padded, unpadded and URL-safe base64.
func decodeEmailParam(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		decoded, err := enc.DecodeString(raw)
		if err != nil {
			continue
		}
		email := strings.TrimSpace(string(decoded))
		if email != "" && strings.Contains(email, "@") {
			return email, true
		}
	}
	return "", false
}
