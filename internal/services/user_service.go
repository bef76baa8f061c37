package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/crypto"
	apperrors "github.com/goout-id/goout/pkg/errors"
	"github.com/goout-id/goout/pkg/logger"
	"github.com/goout-id/goout/pkg/metrics"
)

// TicketIssuer opens the verification session a new account starts with.
type TicketIssuer interface {
	IssueTicket(ctx context.Context, userID string) (verification.Ticket, error)
}

// RegisterInput describes the fields accepted when signing up.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// ExternalIdentity is the subset of identity provider claims used to sign in.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FullName      string
	Picture       string
}

// UserService manages account creation and password authentication.
type UserService struct {
	db      *gorm.DB
	tickets TicketIssuer
	now     func() time.Time
	log     *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, tickets TicketIssuer) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if tickets == nil {
		return nil, errors.New("user service: ticket issuer is required")
	}
	return &UserService{
		db:      db,
		tickets: tickets,
		now:     time.Now,
		log:     logger.WithModule("users"),
	}, nil
}

// Register creates an unverified account with a hashed password and opens
// its verification session.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, verification.Ticket, error) {
	ctx = ensureContext(ctx)

	email := verification.NormalizeEmail(input.Email)
	if email == "" {
		return nil, verification.Ticket{}, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, verification.Ticket{}, apperrors.NewBadRequest("password is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, verification.Ticket{}, fmt.Errorf("user service: check email: %w", err)
	}
	if existing > 0 {
		return nil, verification.Ticket{}, ErrUserExists
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, verification.Ticket{}, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hashed,
		Provider:     "local",
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, verification.Ticket{}, ErrUserExists
		}
		return nil, verification.Ticket{}, fmt.Errorf("user service: create user: %w", err)
	}

	ticket, err := s.tickets.IssueTicket(ctx, user.ID)
	if err != nil {
		// Remove the account so the address can register again.
		if delErr := s.db.WithContext(context.WithoutCancel(ctx)).Delete(&models.User{}, "id = ?", user.ID).Error; delErr != nil {
			s.log.Error("failed to roll back user without ticket", zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, verification.Ticket{}, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, ticket, nil
}

// Authenticate checks a password and refuses accounts whose email has not been confirmed.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", verification.NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("password", "invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("password", "invalid").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsVerified() {
		metrics.AuthAttempts.WithLabelValues("password", "unverified").Inc()
		return nil, apperrors.ErrEmailNotVerified
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// SignInExternal maps an identity provider login to a local account. The
// account is found by provider subject, then created. An existing account is
// linked by email only when the provider asserts the address is verified and
// the account is not already bound to another identity.
func (s *UserService) SignInExternal(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	ctx = ensureContext(ctx)

	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	email := verification.NormalizeEmail(identity.Email)
	if provider == "" || strings.TrimSpace(identity.Subject) == "" {
		return nil, apperrors.NewBadRequest("identity provider returned no subject")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("identity provider returned no email")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND provider_subject = ?", provider, identity.Subject).Take(&user).Error
		switch {
		case err == nil:
			return s.refreshExternal(tx, &user, identity)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		err = tx.Where("email = ?", email).Take(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:           email,
				FullName:        strings.TrimSpace(identity.FullName),
				Image:           strings.TrimSpace(identity.Picture),
				Provider:        provider,
				ProviderSubject: identity.Subject,
			}
			if identity.EmailVerified {
				now := s.now()
				user.EmailVerified = &now
			}
			return tx.Create(&user).Error
		case err != nil:
			return err
		}

		// The address belongs to an existing account.
		if !identity.EmailVerified {
			return apperrors.ErrEmailNotVerified
		}
		if user.ProviderSubject != "" {
			return ErrIdentityLinked
		}
		if err := tx.Model(&user).Updates(map[string]any{
			"provider":         provider,
			"provider_subject": identity.Subject,
		}).Error; err != nil {
			return err
		}
		user.Provider = provider
		user.ProviderSubject = identity.Subject
		return s.refreshExternal(tx, &user, identity)
	})
	switch {
	case errors.Is(err, apperrors.ErrEmailNotVerified):
		metrics.AuthAttempts.WithLabelValues("oidc", "unverified").Inc()
		return nil, apperrors.ErrEmailNotVerified
	case errors.Is(err, ErrIdentityLinked):
		metrics.AuthAttempts.WithLabelValues("oidc", "rejected").Inc()
		s.log.Warn("identity provider login matched an account linked elsewhere", zap.String("user_id", user.ID))
		return nil, ErrIdentityLinked
	case err != nil:
		metrics.AuthAttempts.WithLabelValues("oidc", "error").Inc()
		return nil, fmt.Errorf("user service: sign in external: %w", err)
	}

	if !user.IsVerified() {
		metrics.AuthAttempts.WithLabelValues("oidc", "unverified").Inc()
		return nil, apperrors.ErrEmailNotVerified
	}

	metrics.AuthAttempts.WithLabelValues("oidc", "success").Inc()
	return &user, nil
}

// refreshExternal records a verified assertion and fills a missing picture.
func (s *UserService) refreshExternal(tx *gorm.DB, user *models.User, identity ExternalIdentity) error {
	updates := map[string]any{}
	if identity.EmailVerified && !user.IsVerified() {
		now := s.now()
		updates["email_verified"] = now
		user.EmailVerified = &now
	}
	if user.Image == "" && identity.Picture != "" {
		updates["image"] = identity.Picture
		user.Image = identity.Picture
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(user).Updates(updates).Error
}
