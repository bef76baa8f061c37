package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/api"
	"github.com/goout-id/goout/internal/app"
	iauth "github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/cache"
	sharedtestutil "github.com/goout-id/goout/internal/database/testutil"
	"github.com/goout-id/goout/internal/handlers"
	"github.com/goout-id/goout/internal/monitoring"
	"github.com/goout-id/goout/internal/monitoring/checks"
	"github.com/goout-id/goout/internal/storage"
	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/mail"
	"github.com/goout-id/goout/pkg/response"
)

// VerifyURL is the link base used in confirmation emails sent by the Env.
const VerifyURL = "http://app.test/verify"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Verifier *verification.Service
	Cache    *cache.DatabaseStore
	Mailer   *RecordingMailer
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	uploader  storage.Uploader
	oidc      handlers.IdentityLogin
	rateLimit int
	now       func() time.Time
}

// WithUploader replaces the disabled uploader.
func WithUploader(u storage.Uploader) EnvOption {
	return func(cfg *envConfig) { cfg.uploader = u }
}

// WithIdentityLogin mounts the OIDC routes backed by login.
func WithIdentityLogin(login handlers.IdentityLogin) EnvOption {
	return func(cfg *envConfig) { cfg.oidc = login }
}

// WithRateLimit enables the rate limiter with the given per-minute budget.
func WithRateLimit(requests int) EnvOption {
	return func(cfg *envConfig) { cfg.rateLimit = requests }
}

// WithClock drives verification expiry from now.
func WithClock(now func() time.Time) EnvOption {
	return func(cfg *envConfig) { cfg.now = now }
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	settings := envConfig{uploader: storage.Disabled{}, now: time.Now}
	for _, opt := range opts {
		opt(&settings)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	mailer := &RecordingMailer{}
	verifier, err := verification.NewService(
		verification.NewGormSessionStore(db, verification.WithStoreClock(settings.now)),
		verification.NewGormTokenStore(db, verification.WithStoreClock(settings.now)),
		verification.NewGormUserDirectory(db),
		mailer,
		verification.WithClock(settings.now),
		verification.WithVerifyURL(VerifyURL),
		verification.WithSender("Go Out <noreply@goout.test>"),
	)
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db)

	cfg := &app.Config{
		Server: app.ServerConfig{
			RateLimit: app.RateLimitConfig{
				Enabled:  settings.rateLimit > 0,
				Requests: settings.rateLimit,
				Window:   time.Minute,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:       db,
		Config:   cfg,
		JWT:      jwtSvc,
		Verifier: verifier,
		Cache:    store,
		Uploader: settings.uploader,
		Health: monitoring.NewHealthManager(
			checks.Database(db, time.Second),
			checks.Cache(store, time.Second),
		),
		OIDC: settings.oidc,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Verifier: verifier,
		Cache:    store,
		Mailer:   mailer,
	}
}

// RecordingMailer keeps every message it is asked to send.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

var verifyLinkToken = regexp.MustCompile(`verify\?token=([0-9a-f]+)`)

// LastVerificationToken extracts the token from the newest confirmation email.
func (m *RecordingMailer) LastVerificationToken(t *testing.T) string {
	t.Helper()
	messages := m.Messages()
	require.NotEmpty(t, messages, "no email was sent")
	match := verifyLinkToken.FindStringSubmatch(messages[len(messages)-1].Body)
	require.Len(t, match, 2, "confirmation email carries no verify link")
	return match[1]
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName"`
	EmailVerified *time.Time `json:"emailVerified"`
	Provider      string     `json:"provider"`
}

// RegisterResult mirrors POST /api/auth/register.
type RegisterResult struct {
	User  UserPayload `json:"user"`
	Token string      `json:"token"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expiresIn"`
	User      UserPayload `json:"user"`
}

// Register signs up a new account and returns the initial session token.
func (e *Env) Register(email, password, fullName string) RegisterResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"fullName": fullName,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var result RegisterResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// RegisterVerified registers an account and walks it through email verification.
func (e *Env) RegisterVerified(email, password, fullName string) UserPayload {
	e.T.Helper()

	registered := e.Register(email, password, fullName)

	w := e.Request(http.MethodPost, "/api/auth/resend?token="+registered.Token, nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	w = e.Request(http.MethodPost, "/api/auth/verify?token="+e.Mailer.LastVerificationToken(e.T), nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var user UserPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &user)
	require.NotNil(e.T, user.EmailVerified)
	return user
}

// Login authenticates with a password and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	require.Greater(e.T, result.ExpiresIn, 0)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return e.Do(req)
}

// Do serves a prepared request.
func (e *Env) Do(req *http.Request) *httptest.ResponseRecorder {
	e.T.Helper()
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
