package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/pkg/logger"
	"github.com/goout-id/goout/pkg/mail"
	"github.com/goout-id/goout/pkg/metrics"
)

const (
	// DefaultTTL is the lifetime of both sessions and verification tokens.
	DefaultTTL = 30 * time.Minute
	// DefaultVerifyURL is used when no public URL is configured.
	DefaultVerifyURL = "http://localhost:3000/verify"
)

// Ticket is the session token handed back by IssueOrRefreshTicket.
type Ticket struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Dispatch describes the confirmation email that was handed to the mailer.
type Dispatch struct {
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	Expires  time.Time `json:"expires"`
}

// PurgeStats reports how many expired rows a purge removed.
type PurgeStats struct {
	Sessions int64
	Tokens   int64
}

// Option customises the Service.
type Option func(*Service)

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionTTL overrides how long a verification session stays usable.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithTokenTTL overrides how long an emailed verification link stays usable.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// WithVerifyURL sets the page the emailed link points at. The token is added
// as the "token" query parameter.
func WithVerifyURL(raw string) Option {
	return func(s *Service) {
		if strings.TrimSpace(raw) != "" {
			s.verifyURL = strings.TrimSpace(raw)
		}
	}
}

// WithSender sets the From address of confirmation emails.
func WithSender(from string) Option {
	return func(s *Service) {
		s.from = strings.TrimSpace(from)
	}
}

// WithRenderer replaces the default HTML renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger replaces the module logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service runs the email verification protocol: it issues verification
// sessions, exchanges them for emailed tokens and consumes those tokens.
type Service struct {
	sessions SessionStore
	tokens   TokenStore
	users    UserDirectory
	mailer   mail.Mailer
	renderer Renderer

	now        func() time.Time
	sessionTTL time.Duration
	tokenTTL   time.Duration
	verifyURL  string
	from       string
	log        *zap.Logger
}

// NewService constructs the verification service.
func NewService(sessions SessionStore, tokens TokenStore, users UserDirectory, mailer mail.Mailer, opts ...Option) (*Service, error) {
	if sessions == nil || tokens == nil || users == nil {
		return nil, errors.New("verification service: stores are required")
	}
	if mailer == nil {
		return nil, errors.New("verification service: mailer is required")
	}

	svc := &Service{
		sessions:   sessions,
		tokens:     tokens,
		users:      users,
		mailer:     mailer,
		now:        time.Now,
		sessionTTL: DefaultTTL,
		tokenTTL:   DefaultTTL,
		verifyURL:  DefaultVerifyURL,
		log:        logger.WithModule("verification"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.renderer == nil {
		svc.renderer = NewHTMLRenderer(svc.tokenTTL)
	}
	if _, err := url.Parse(svc.verifyURL); err != nil {
		return nil, fmt.Errorf("verification service: invalid verify url: %w", err)
	}

	return svc, nil
}

// IssueTicket opens the verification session created at registration for a
// user that has just been inserted.
func (s *Service) IssueTicket(ctx context.Context, userID string) (Ticket, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return Ticket{}, s.fail("issue", ErrNotFound)
	}

	session, err := s.createOrRotate(ctx, userID)
	if err != nil {
		return Ticket{}, s.fail("issue", err)
	}
	metrics.VerificationSteps.WithLabelValues("issue", "ok").Inc()
	return Ticket{Token: session.SessionToken, Expires: session.Expires}, nil
}

// IssueOrRefreshTicket gives an unverified user a verification session,
// rotating the one they already own rather than adding a second.
func (s *Service) IssueOrRefreshTicket(ctx context.Context, email string) (Ticket, error) {
	ctx = ensureContext(ctx)

	email = NormalizeEmail(email)
	if email == "" {
		return Ticket{}, s.fail("issue", ErrNotFound)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrRecordNotFound) {
		return Ticket{}, s.fail("issue", ErrNotFound)
	}
	if err != nil {
		return Ticket{}, s.fail("issue", internal("verification: find user by email: %w", err))
	}
	if user.IsVerified() {
		return Ticket{}, s.fail("issue", ErrAlreadyVerified)
	}

	session, err := s.createOrRotate(ctx, user.ID)
	if err != nil {
		return Ticket{}, s.fail("issue", err)
	}

	metrics.VerificationSteps.WithLabelValues("issue", "ok").Inc()
	return Ticket{Token: session.SessionToken, Expires: session.Expires}, nil
}

// DispatchVerificationEmail exchanges a live session token for a
// verification token and emails the confirmation link. The session is
// consumed. Mail delivery failures are logged and never returned.
func (s *Service) DispatchVerificationEmail(ctx context.Context, sessionToken string) (Dispatch, error) {
	ctx = ensureContext(ctx)

	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return Dispatch{}, s.fail("dispatch", ErrInvalidToken)
	}

	session, err := s.sessions.FindByToken(ctx, sessionToken)
	if errors.Is(err, ErrRecordNotFound) {
		return Dispatch{}, s.fail("dispatch", ErrInvalidToken)
	}
	if err != nil {
		return Dispatch{}, s.fail("dispatch", internal("verification: find session: %w", err))
	}

	// Expiry is checked before the owner is resolved.
	if session.Expired(s.now()) {
		return Dispatch{}, s.fail("dispatch", ErrExpired)
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		s.log.Error("verification session owner missing",
			zap.String("session_id", session.ID),
			zap.String("user_id", session.UserID),
		)
		return Dispatch{}, s.fail("dispatch", internal("%w: user %s", ErrInconsistent, session.UserID))
	}
	if err != nil {
		return Dispatch{}, s.fail("dispatch", internal("verification: find session owner: %w", err))
	}

	token, err := s.tokens.Create(ctx, user.Email, s.tokenTTL)
	if err != nil {
		return Dispatch{}, s.fail("dispatch", internal("verification: create token: %w", err))
	}

	if err := s.sessions.Delete(ctx, session.SessionToken); err != nil {
		return Dispatch{}, s.fail("dispatch", internal("verification: consume session: %w", err))
	}

	s.sendConfirmation(ctx, user, token)

	metrics.VerificationSteps.WithLabelValues("dispatch", "ok").Inc()
	return Dispatch{Email: user.Email, FullName: user.FullName, Expires: token.Expires}, nil
}

// ConsumeVerificationToken marks the token's owner as verified and deletes
// the token. The token is deleted on the already-verified path as well.
func (s *Service) ConsumeVerificationToken(ctx context.Context, token string) (*models.User, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, s.fail("consume", ErrInvalidToken)
	}

	record, err := s.tokens.FindByToken(ctx, token)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, s.fail("consume", ErrInvalidToken)
	}
	if err != nil {
		return nil, s.fail("consume", internal("verification: find token: %w", err))
	}

	if record.Expired(s.now()) {
		return nil, s.fail("consume", ErrExpired)
	}

	user, err := s.users.FindByEmail(ctx, record.Identifier)
	if errors.Is(err, ErrRecordNotFound) {
		s.log.Error("verification token owner missing", zap.String("identifier", record.Identifier))
		return nil, s.fail("consume", internal("%w: identifier %s", ErrInconsistent, record.Identifier))
	}
	if err != nil {
		return nil, s.fail("consume", internal("verification: find token owner: %w", err))
	}

	if user.IsVerified() {
		s.discardToken(ctx, record.Token)
		return nil, s.fail("consume", ErrAlreadyVerified)
	}

	when := s.now()
	if err := s.users.SetVerified(ctx, user.ID, when); err != nil {
		if errors.Is(err, ErrNoTransition) {
			s.discardToken(ctx, record.Token)
			return nil, s.fail("consume", ErrAlreadyVerified)
		}
		return nil, s.fail("consume", internal("verification: mark verified: %w", err))
	}
	user.EmailVerified = &when

	// The flip above is authoritative; a failed delete is only logged.
	s.discardToken(ctx, record.Token)

	metrics.VerificationSteps.WithLabelValues("consume", "ok").Inc()
	return user, nil
}

// Purge removes expired sessions and tokens.
func (s *Service) Purge(ctx context.Context) (PurgeStats, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	var (
		stats PurgeStats
		errs  error
	)

	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("purge sessions: %w", err))
	}
	stats.Sessions = sessions

	tokens, err := s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("purge tokens: %w", err))
	}
	stats.Tokens = tokens

	metrics.PurgedTokens.WithLabelValues("session").Add(float64(stats.Sessions))
	metrics.PurgedTokens.WithLabelValues("token").Add(float64(stats.Tokens))
	return stats, errs
}

// VerifyLink builds the link emailed for token.
func (s *Service) VerifyLink(token string) string {
	u, err := url.Parse(s.verifyURL)
	if err != nil {
		return s.verifyURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// createOrRotate implements the rotate-or-create branch. A unique conflict
// on create means a concurrent request inserted the user's session first;
// the rotate path is then taken once.
func (s *Service) createOrRotate(ctx context.Context, userID string) (*models.VerificationSession, error) {
	existing, err := s.sessions.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		return s.rotate(ctx, existing.SessionToken)
	case !errors.Is(err, ErrRecordNotFound):
		return nil, internal("verification: find session by user: %w", err)
	}

	created, err := s.sessions.Create(ctx, userID, s.sessionTTL)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, internal("verification: create session: %w", err)
	}

	s.log.Debug("verification session created concurrently, rotating", zap.String("user_id", userID))
	existing, err = s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, internal("verification: reload session after conflict: %w", err)
	}
	return s.rotate(ctx, existing.SessionToken)
}

func (s *Service) rotate(ctx context.Context, token string) (*models.VerificationSession, error) {
	rotated, err := s.sessions.Rotate(ctx, token, s.sessionTTL)
	if err != nil {
		return nil, internal("verification: rotate session: %w", err)
	}
	return rotated, nil
}

func (s *Service) sendConfirmation(ctx context.Context, user *models.User, token *models.VerificationToken) {
	rendered, err := s.renderer.Render(user.FullName, s.VerifyLink(token.Token))
	if err != nil {
		metrics.MailDeliveries.WithLabelValues("email_confirmation", "render_error").Inc()
		s.log.Error("render confirmation email", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	err = s.mailer.Send(ctx, mail.Message{
		From:    s.from,
		To:      []string{user.Email},
		Subject: rendered.Subject,
		Body:    rendered.Body,
		HTML:    true,
	})
	if err != nil {
		metrics.MailDeliveries.WithLabelValues("email_confirmation", "error").Inc()
		s.log.Warn("send confirmation email", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	metrics.MailDeliveries.WithLabelValues("email_confirmation", "sent").Inc()
}

func (s *Service) discardToken(ctx context.Context, token string) {
	if err := s.tokens.Delete(ctx, token); err != nil {
		s.log.Warn("delete verification token", zap.Error(err))
	}
}

func (s *Service) fail(step string, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrInvalidToken):
		outcome = "invalid_token"
	case errors.Is(err, ErrExpired):
		outcome = "expired"
	case errors.Is(err, ErrAlreadyVerified):
		outcome = "already_verified"
	default:
		s.log.Error("verification step failed", zap.String("step", step), zap.Error(err))
	}
	metrics.VerificationSteps.WithLabelValues(step, outcome).Inc()
	return err
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
