package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goout-id/goout/internal/models"
	"github.com/goout-id/goout/pkg/mail"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequence struct {
	mu sync.Mutex
	n  int
}

func (s *sequence) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("tok-%03d", s.n), nil
}

type memSessions struct {
	clock    *clock
	gen      *sequence
	byToken  map[string]*models.VerificationSession
	writes   int
	deleteFn func(token string) error
	// raceUser makes the next Create for this user fail as if another
	// request inserted the row first.
	raceUser string
}

func newMemSessions(c *clock, gen *sequence) *memSessions {
	return &memSessions{clock: c, gen: gen, byToken: map[string]*models.VerificationSession{}}
}

func (m *memSessions) Create(_ context.Context, userID string, ttl time.Duration) (*models.VerificationSession, error) {
	if m.raceUser == userID {
		m.raceUser = ""
		token, _ := m.gen.Next()
		m.byToken[token] = &models.VerificationSession{BaseModel: models.BaseModel{ID: "raced"}, SessionToken: token, UserID: userID, Expires: m.clock.Now().Add(ttl)}
		return nil, ErrDuplicate
	}
	for _, s := range m.byToken {
		if s.UserID == userID {
			return nil, ErrDuplicate
		}
	}
	token, _ := m.gen.Next()
	s := &models.VerificationSession{BaseModel: models.BaseModel{ID: "sess-" + token}, SessionToken: token, UserID: userID, Expires: m.clock.Now().Add(ttl)}
	m.byToken[token] = s
	m.writes++
	cp := *s
	return &cp, nil
}

func (m *memSessions) FindByToken(_ context.Context, token string) (*models.VerificationSession, error) {
	s, ok := m.byToken[token]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) FindByUserID(_ context.Context, userID string) (*models.VerificationSession, error) {
	for _, s := range m.byToken {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (m *memSessions) Rotate(_ context.Context, existing string, ttl time.Duration) (*models.VerificationSession, error) {
	s, ok := m.byToken[existing]
	if !ok {
		return nil, ErrRecordNotFound
	}
	token, _ := m.gen.Next()
	delete(m.byToken, existing)
	s.SessionToken = token
	s.Expires = m.clock.Now().Add(ttl)
	m.byToken[token] = s
	m.writes++
	cp := *s
	return &cp, nil
}

func (m *memSessions) Delete(_ context.Context, token string) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(token); err != nil {
			return err
		}
	}
	delete(m.byToken, token)
	m.writes++
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, s := range m.byToken {
		if s.Expires.Before(now) {
			delete(m.byToken, token)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) countFor(userID string) int {
	n := 0
	for _, s := range m.byToken {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type memTokens struct {
	clock     *clock
	gen       *sequence
	byToken   map[string]*models.VerificationToken
	deleteErr error
}

func newMemTokens(c *clock, gen *sequence) *memTokens {
	return &memTokens{clock: c, gen: gen, byToken: map[string]*models.VerificationToken{}}
}

func (m *memTokens) Create(_ context.Context, identifier string, ttl time.Duration) (*models.VerificationToken, error) {
	token, _ := m.gen.Next()
	t := &models.VerificationToken{Token: token, Identifier: identifier, Expires: m.clock.Now().Add(ttl)}
	m.byToken[token] = t
	cp := *t
	return &cp, nil
}

func (m *memTokens) FindByToken(_ context.Context, token string) (*models.VerificationToken, error) {
	t, ok := m.byToken[token]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) Delete(_ context.Context, token string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.byToken, token)
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, t := range m.byToken {
		if t.Expires.Before(now) {
			delete(m.byToken, token)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) forIdentifier(identifier string) []*models.VerificationToken {
	var out []*models.VerificationToken
	for _, t := range m.byToken {
		if t.Identifier == identifier {
			out = append(out, t)
		}
	}
	return out
}

type memUsers struct {
	byID     map[string]*models.User
	setCalls int
	// verifyBehindBack marks the user verified just before SetVerified runs,
	// simulating a concurrent consumer winning the race.
	verifyBehindBack bool
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetVerified(_ context.Context, id string, when time.Time) error {
	m.setCalls++
	u, ok := m.byID[id]
	if !ok {
		return ErrRecordNotFound
	}
	if m.verifyBehindBack {
		earlier := when.Add(-time.Second)
		u.EmailVerified = &earlier
	}
	if u.EmailVerified != nil {
		return ErrNoTransition
	}
	u.EmailVerified = &when
	return nil
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}
