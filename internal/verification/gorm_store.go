package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/database"
	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/pkg/crypto"
)

// DefaultTokenBytes is the number of random bytes in generated tokens.
const DefaultTokenBytes = 64

// HexTokenGenerator returns a generator of n random bytes hex encoded.
func HexTokenGenerator(n int) TokenGenerator {
	return func() (string, error) {
		return crypto.GenerateHexToken(n)
	}
}

// StoreOption customises the gorm backed stores.
type StoreOption func(*storeConfig)

type storeConfig struct {
	generate TokenGenerator
	now      func() time.Time
}

// WithStoreTokenGenerator replaces the token source.
func WithStoreTokenGenerator(gen TokenGenerator) StoreOption {
	return func(cfg *storeConfig) {
		if gen != nil {
			cfg.generate = gen
		}
	}
}

// WithStoreClock injects a custom time source used to compute expiries.
func WithStoreClock(clock func() time.Time) StoreOption {
	return func(cfg *storeConfig) {
		if clock != nil {
			cfg.now = clock
		}
	}
}

func newStoreConfig(opts []StoreOption) storeConfig {
	cfg := storeConfig{
		generate: HexTokenGenerator(DefaultTokenBytes),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// GormSessionStore implements SessionStore on gorm.
type GormSessionStore struct {
	db  *gorm.DB
	cfg storeConfig
}

// NewGormSessionStore returns a SessionStore backed by db.
func NewGormSessionStore(db *gorm.DB, opts ...StoreOption) *GormSessionStore {
	return &GormSessionStore{db: db, cfg: newStoreConfig(opts)}
}

func (s *GormSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (*models.VerificationSession, error) {
	token, err := s.cfg.generate()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &models.VerificationSession{
		SessionToken: token,
		UserID:       userID,
		Expires:      s.cfg.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *GormSessionStore) FindByToken(ctx context.Context, token string) (*models.VerificationSession, error) {
	return s.findOne(ctx, "session_token = ?", token)
}

func (s *GormSessionStore) FindByUserID(ctx context.Context, userID string) (*models.VerificationSession, error) {
	return s.findOne(ctx, "user_id = ?", userID)
}

func (s *GormSessionStore) Rotate(ctx context.Context, existingToken string, ttl time.Duration) (*models.VerificationSession, error) {
	token, err := s.cfg.generate()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	expires := s.cfg.now().Add(ttl)

	var session models.VerificationSession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_token = ?", existingToken).Take(&session).Error; err != nil {
			return err
		}
		return tx.Model(&session).Updates(map[string]any{
			"session_token": token,
			"expires":       expires,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	session.SessionToken = token
	session.Expires = expires
	return &session, nil
}

func (s *GormSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("session_token = ?", token).Delete(&models.VerificationSession{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *GormSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires < ?", now).Delete(&models.VerificationSession{})
	return res.RowsAffected, res.Error
}

func (s *GormSessionStore) findOne(ctx context.Context, query string, arg string) (*models.VerificationSession, error) {
	var session models.VerificationSession
	err := s.db.WithContext(ctx).Where(query, arg).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GormTokenStore implements TokenStore on gorm.
type GormTokenStore struct {
	db  *gorm.DB
	cfg storeConfig
}

// NewGormTokenStore returns a TokenStore backed by db.
func NewGormTokenStore(db *gorm.DB, opts ...StoreOption) *GormTokenStore {
	return &GormTokenStore{db: db, cfg: newStoreConfig(opts)}
}

func (s *GormTokenStore) Create(ctx context.Context, identifier string, ttl time.Duration) (*models.VerificationToken, error) {
	token, err := s.cfg.generate()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	record := &models.VerificationToken{
		Token:      token,
		Identifier: identifier,
		Expires:    s.cfg.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("insert verification token: %w", err)
	}
	return record, nil
}

func (s *GormTokenStore) FindByToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	var record models.VerificationToken
	err := s.db.WithContext(ctx).Where("token = ?", token).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormTokenStore) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.VerificationToken{}).Error; err != nil {
		return fmt.Errorf("delete verification token: %w", err)
	}
	return nil
}

func (s *GormTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires < ?", now).Delete(&models.VerificationToken{})
	return res.RowsAffected, res.Error
}

// GormUserDirectory implements UserDirectory on the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory returns a UserDirectory backed by db.
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (d *GormUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	return d.findOne(ctx, "id = ?", id)
}

// SetVerified only updates rows that are still unverified, so concurrent
// consumers cannot both flip the same user.
func (d *GormUserDirectory) SetVerified(ctx context.Context, id string, when time.Time) error {
	res := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND email_verified IS NULL", id).
		Update("email_verified", when)
	if res.Error != nil {
		return fmt.Errorf("set email verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("set email verified: %w", err)
		}
		if count == 0 {
			return ErrRecordNotFound
		}
		return ErrNoTransition
	}
	return nil
}

func (d *GormUserDirectory) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
