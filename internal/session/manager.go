// Package session turns verified credentials into authenticated sessions.
//
// A session token is an HS256-signed JWT whose jti must also exist in the
// manager's in-memory registry. The registry makes tokens revocable (logout)
// and guarantees that no session survives a process restart, since the
// signature alone is never sufficient.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"idfort.org/internal/ids"
)

const defaultTTL = 12 * time.Hour

// ErrInvalidSession indicates an absent, expired or revoked session.
var ErrInvalidSession = errors.New("session: invalid or expired")

type entry struct {
	userID    string
	expiresAt time.Time
}

// Manager owns the login/logout lifecycle for all live sessions.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	active map[string]entry

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(m *Manager) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager and starts the expiry janitor.
func NewManager(secret string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}
	m := &Manager{
		secret: []byte(secret),
		issuer: "idfort",
		ttl:    defaultTTL,
		now:    time.Now,
		active: make(map[string]entry),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m, nil
}

// Close stops the expiry janitor.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Issue mints a session token for the user and records it as live.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("session: userID is required")
	}
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	jti := ids.New()

	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   userID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	m.mu.Lock()
	m.active[jti] = entry{userID: userID, expiresAt: expiresAt}
	m.mu.Unlock()
	return token, expiresAt, nil
}

// Resolve validates a token and returns the bound user id. The token must
// verify and its jti must still be registered and unexpired.
func (m *Manager) Resolve(token string) (string, error) {
	claims, err := m.parse(token)
	if err != nil {
		return "", ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.active[claims.ID]
	if !ok || rec.userID != claims.Subject {
		return "", ErrInvalidSession
	}
	if m.now().After(rec.expiresAt) {
		delete(m.active, claims.ID)
		return "", ErrInvalidSession
	}
	return rec.userID, nil
}

// Revoke invalidates the session immediately. Revoking an unknown or already
// revoked token is not an error.
func (m *Manager) Revoke(token string) {
	claims, err := m.parse(token)
	if err != nil {
		return
	}
	m.mu.Lock()
	delete(m.active, claims.ID)
	m.mu.Unlock()
}

// RevokeUser drops every live session bound to the user.
func (m *Manager) RevokeUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for jti, rec := range m.active {
		if rec.userID == userID {
			delete(m.active, jti)
		}
	}
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSession
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSession
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for jti, rec := range m.active {
				if now.After(rec.expiresAt) {
					delete(m.active, jti)
				}
			}
			m.mu.Unlock()
		}
	}
}
