package app

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/goout-id/goout/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	return generated, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		errs = multierr.Append(errs, errors.New("cache.redis.address is required when redis is enabled"))
	}
	if c.Auth.OIDC.Enabled {
		if strings.TrimSpace(c.Auth.OIDC.Issuer) == "" || strings.TrimSpace(c.Auth.OIDC.ClientID) == "" {
			errs = multierr.Append(errs, errors.New("auth.oidc issuer and client_id are required when oidc is enabled"))
		}
		if strings.TrimSpace(c.Auth.OIDC.RedirectURL) == "" {
			errs = multierr.Append(errs, errors.New("auth.oidc.redirect_url is required when oidc is enabled"))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Email.Driver)) {
	case "", "log":
	case "smtp":
		if strings.TrimSpace(c.Email.SMTP.Host) == "" {
			errs = multierr.Append(errs, errors.New("email.smtp.host is required for the smtp driver"))
		}
	case "sendgrid":
		if strings.TrimSpace(c.Email.SendGrid.APIKey) == "" {
			errs = multierr.Append(errs, errors.New("email.sendgrid.api_key is required for the sendgrid driver"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("email.driver %q is not supported", c.Email.Driver))
	}
	if c.Storage.S3.Enabled && strings.TrimSpace(c.Storage.S3.Bucket) == "" {
		errs = multierr.Append(errs, errors.New("storage.s3.bucket is required when uploads are enabled"))
	}
	return errs
}
