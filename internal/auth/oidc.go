package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/pkg/crypto"
	apperrors "github.com/goout-id/goout/pkg/errors"
)

const (
	// DefaultStateTTL bounds how long a login may take at the identity provider.
	DefaultStateTTL = 10 * time.Minute
	defaultTimeout  = 10 * time.Second
	statePrefix     = "oidc:state:"
)

var (
	// ErrLoginStateInvalid is returned when a callback carries an unknown,
	// reused or expired state.
	ErrLoginStateInvalid = apperrors.New("OIDC_STATE_INVALID", "Login request is invalid or has expired", http.StatusBadRequest)
	// ErrIdentityRejected is returned when the provider response cannot be trusted.
	ErrIdentityRejected = apperrors.New("OIDC_IDENTITY_REJECTED", "Identity provider login failed", http.StatusUnauthorized)
)

// OIDCConfig configures the OpenID Connect login flow.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StateTTL     time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Identity is the verified subset of ID token claims.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type loginState struct {
	Nonce     string `json:"n"`
	Verifier  string `json:"v"`
	ReturnURL string `json:"r,omitempty"`
}

// OIDCLogin runs the authorization code flow with PKCE. Per-login state is
// kept in the shared cache so any replica can finish the callback.
type OIDCLogin struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	states   cache.Store
	ttl      time.Duration
	timeout  time.Duration
	client   *http.Client
}

// NewOIDCLogin discovers the issuer and returns a ready login flow.
func NewOIDCLogin(ctx context.Context, cfg OIDCConfig, states cache.Store) (*OIDCLogin, error) {
	if err := validateOIDCConfig(cfg); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc: discovery failed: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newOIDCLogin(cfg, provider.Endpoint(), verifier, states)
}

func newOIDCLogin(cfg OIDCConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier, states cache.Store) (*OIDCLogin, error) {
	if states == nil {
		return nil, errors.New("oidc: state store is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OIDCLogin{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: verifier,
		states:   states,
		ttl:      ttl,
		timeout:  timeout,
		client:   cfg.HTTPClient,
	}, nil
}

func validateOIDCConfig(cfg OIDCConfig) error {
	switch {
	case strings.TrimSpace(cfg.Issuer) == "":
		return errors.New("oidc: issuer is required")
	case strings.TrimSpace(cfg.ClientID) == "":
		return errors.New("oidc: client id is required")
	case strings.TrimSpace(cfg.ClientSecret) == "":
		return errors.New("oidc: client secret is required")
	case strings.TrimSpace(cfg.RedirectURL) == "":
		return errors.New("oidc: redirect url is required")
	}
	return nil
}

// Begin records a new login attempt and returns the provider authorization URL.
func (l *OIDCLogin) Begin(ctx context.Context, returnURL string) (string, error) {
	state, err := crypto.GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("oidc: generate state: %w", err)
	}
	nonce, err := crypto.GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("oidc: generate nonce: %w", err)
	}
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(loginState{Nonce: nonce, Verifier: pkce.Verifier, ReturnURL: returnURL})
	if err != nil {
		return "", fmt.Errorf("oidc: encode state: %w", err)
	}
	if err := l.states.Set(ctx, statePrefix+state, raw, l.ttl); err != nil {
		return "", fmt.Errorf("oidc: store state: %w", err)
	}

	return l.oauth.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// Complete consumes the state, exchanges the code and verifies the ID token.
// It returns the identity and the return URL given to Begin.
func (l *OIDCLogin) Complete(ctx context.Context, state, code string) (Identity, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(state) == "" || strings.TrimSpace(code) == "" {
		return Identity{}, "", ErrLoginStateInvalid
	}

	raw, ok, err := l.states.Take(ctx, statePrefix+state)
	if err != nil {
		return Identity{}, "", fmt.Errorf("oidc: load state: %w", err)
	}
	if !ok {
		return Identity{}, "", ErrLoginStateInvalid
	}
	var stored loginState
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Identity{}, "", ErrLoginStateInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if l.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, l.client)
		ctx = oidc.ClientContext(ctx, l.client)
	}

	token, err := l.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", stored.Verifier))
	if err != nil {
		return Identity{}, "", ErrIdentityRejected.WithInternal(fmt.Errorf("exchange: %w", err))
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Identity{}, "", ErrIdentityRejected.WithInternal(errors.New("id token missing"))
	}

	idToken, err := l.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, "", ErrIdentityRejected.WithInternal(fmt.Errorf("verify id token: %w", err))
	}
	if idToken.Nonce != stored.Nonce {
		return Identity{}, "", ErrIdentityRejected.WithInternal(errors.New("nonce mismatch"))
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified any    `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, "", ErrIdentityRejected.WithInternal(fmt.Errorf("decode claims: %w", err))
	}

	return Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: truthy(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, stored.ReturnURL, nil
}

// Some providers send email_verified as a string.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	}
	return false
}
