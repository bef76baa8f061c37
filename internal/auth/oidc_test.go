package auth

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/internal/database/testutil"
)

type fakeIssuer struct {
	server    *httptest.Server
	key       *rsa.PrivateKey
	challenge string
	nonce     string
	claims    jwt.MapClaims
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{key: key}
	f.server = httptest.NewServer(http.HandlerFunc(f.token))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIssuer) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	sum := sha256.Sum256([]byte(r.Form.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != f.challenge {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}

	claims := jwt.MapClaims{
		"iss":   f.server.URL,
		"aud":   "client-123",
		"sub":   "subject-1",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
		"nonce": f.nonce,
		"email": "ana@example.com",
		"name":  "Ana",
	}
	for k, v := range f.claims {
		claims[k] = v
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func newTestLogin(t *testing.T, f *fakeIssuer) *OIDCLogin {
	t.Helper()

	keys := &oidc.StaticKeySet{PublicKeys: []stdcrypto.PublicKey{&f.key.PublicKey}}
	verifier := oidc.NewVerifier(f.server.URL, keys, &oidc.Config{ClientID: "client-123"})
	store := cache.NewDatabaseStore(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))

	login, err := newOIDCLogin(OIDCConfig{
		ClientID:     "client-123",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8000/api/auth/oidc/callback",
		HTTPClient:   f.server.Client(),
	}, oauth2.Endpoint{
		AuthURL:  f.server.URL + "/authorize",
		TokenURL: f.server.URL + "/token",
	}, verifier, store)
	require.NoError(t, err)
	return login
}

func beginLogin(t *testing.T, f *fakeIssuer, login *OIDCLogin) string {
	t.Helper()

	redirect, err := login.Begin(t.Context(), "/bookings")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, "client-123", q.Get("client_id"))
	require.Contains(t, q.Get("scope"), "openid")

	f.challenge = q.Get("code_challenge")
	f.nonce = q.Get("nonce")
	return q.Get("state")
}

func TestOIDCLoginRoundTrip(t *testing.T) {
	f := newFakeIssuer(t)
	f.claims = jwt.MapClaims{"email_verified": "true", "picture": "https://cdn.test/ana.png"}
	login := newTestLogin(t, f)

	state := beginLogin(t, f, login)

	identity, returnURL, err := login.Complete(t.Context(), state, "good-code")
	require.NoError(t, err)
	require.Equal(t, "/bookings", returnURL)
	require.Equal(t, "subject-1", identity.Subject)
	require.Equal(t, "ana@example.com", identity.Email)
	require.True(t, identity.EmailVerified)
	require.Equal(t, "Ana", identity.Name)
	require.Equal(t, "https://cdn.test/ana.png", identity.Picture)

	_, _, err = login.Complete(t.Context(), state, "good-code")
	require.ErrorIs(t, err, ErrLoginStateInvalid)
}

func TestOIDCLoginRejectsUnknownState(t *testing.T) {
	f := newFakeIssuer(t)
	login := newTestLogin(t, f)

	_, _, err := login.Complete(t.Context(), "never-issued", "good-code")
	require.ErrorIs(t, err, ErrLoginStateInvalid)

	_, _, err = login.Complete(t.Context(), "", "")
	require.ErrorIs(t, err, ErrLoginStateInvalid)
}

func TestOIDCLoginRejectsBadExchange(t *testing.T) {
	f := newFakeIssuer(t)
	login := newTestLogin(t, f)

	state := beginLogin(t, f, login)
	_, _, err := login.Complete(t.Context(), state, "bad-code")
	require.ErrorIs(t, err, ErrIdentityRejected)
}

func TestOIDCLoginRejectsNonceMismatch(t *testing.T) {
	f := newFakeIssuer(t)
	f.claims = jwt.MapClaims{"nonce": "forged"}
	login := newTestLogin(t, f)

	state := beginLogin(t, f, login)
	_, _, err := login.Complete(t.Context(), state, "good-code")
	require.ErrorIs(t, err, ErrIdentityRejected)
}

func TestOIDCLoginRejectsWrongAudience(t *testing.T) {
	f := newFakeIssuer(t)
	f.claims = jwt.MapClaims{"aud": "someone-else"}
	login := newTestLogin(t, f)

	state := beginLogin(t, f, login)
	_, _, err := login.Complete(t.Context(), state, "good-code")
	require.ErrorIs(t, err, ErrIdentityRejected)
}

func TestNewOIDCLoginValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  OIDCConfig
		want string
	}{
		{name: "issuer", cfg: OIDCConfig{}, want: "oidc: issuer is required"},
		{name: "client id", cfg: OIDCConfig{Issuer: "https://issuer"}, want: "oidc: client id is required"},
		{name: "client secret", cfg: OIDCConfig{Issuer: "https://issuer", ClientID: "abc"}, want: "oidc: client secret is required"},
		{name: "redirect url", cfg: OIDCConfig{Issuer: "https://issuer", ClientID: "abc", ClientSecret: "s"}, want: "oidc: redirect url is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOIDCLogin(t.Context(), tc.cfg, nil)
			require.EqualError(t, err, tc.want)
		})
	}
}

func TestNewOIDCLoginDiscovery(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"issuer":                 server.URL,
				"authorization_endpoint": server.URL + "/auth",
				"token_endpoint":         server.URL + "/token",
				"jwks_uri":               server.URL + "/jwks",
			})
		case "/jwks":
			_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	store := cache.NewDatabaseStore(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))
	login, err := NewOIDCLogin(t.Context(), OIDCConfig{
		Issuer:       server.URL,
		ClientID:     "client-123",
		ClientSecret: "secret",
		RedirectURL:  "https://goout.my.id/api/auth/oidc/callback",
		HTTPClient:   server.Client(),
		Timeout:      time.Second,
	}, store)
	require.NoError(t, err)
	require.Equal(t, server.URL+"/token", login.oauth.Endpoint.TokenURL)
	require.Equal(t, DefaultStateTTL, login.ttl)
}
