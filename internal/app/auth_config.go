package app

import (
	"strings"

	"github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/verification"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// OIDCLoginConfig converts the OIDC block into the auth package representation.
func (c AuthConfig) OIDCLoginConfig() auth.OIDCConfig {
	return auth.OIDCConfig{
		Issuer:       strings.TrimSpace(c.OIDC.Issuer),
		ClientID:     strings.TrimSpace(c.OIDC.ClientID),
		ClientSecret: c.OIDC.ClientSecret,
		RedirectURL:  strings.TrimSpace(c.OIDC.RedirectURL),
		Scopes:       c.OIDC.Scopes,
		StateTTL:     c.OIDC.StateTTL,
	}
}

// VerificationOptions builds the verification service options. publicURL is
// the frontend origin the emailed link points at; from is the sender.
func (c AuthConfig) VerificationOptions(publicURL, from string) []verification.Option {
	path := strings.TrimSpace(c.Verification.VerifyPath)
	if path == "" {
		path = "/verify"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	opts := []verification.Option{
		verification.WithSessionTTL(c.Verification.SessionTTL),
		verification.WithTokenTTL(c.Verification.TokenTTL),
		verification.WithSender(from),
	}
	if base := strings.TrimRight(strings.TrimSpace(publicURL), "/"); base != "" {
		opts = append(opts, verification.WithVerifyURL(base+path))
	}
	return opts
}

// VerificationStoreOptions configures the token length of the gorm stores.
func (c AuthConfig) VerificationStoreOptions() []verification.StoreOption {
	bytes := c.Verification.TokenBytes
	if bytes <= 0 {
		bytes = verification.DefaultTokenBytes
	}
	return []verification.StoreOption{
		verification.WithStoreTokenGenerator(verification.HexTokenGenerator(bytes)),
	}
}
