package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned on a failed admin login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Session is the admin authentication state behind the cookie token. There is
// exactly one shared admin credential today; the store interface keeps the
// concept isolated so multi-user support does not require a redesign.
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its fixed expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store persists admin sessions keyed by opaque token.
type Store interface {
	// Create mints a new session with the store's configured TTL.
	Create(ctx context.Context) (*Session, error)
	// Get returns the session for token, or nil when absent or expired.
	Get(ctx context.Context, token string) (*Session, error)
	// Delete removes the session; deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// Gate validates the single configured admin credential pair and manages
// sessions through the store.
type Gate struct {
	username string
	password string
	store    Store
}

func NewGate(username, password string, store Store) *Gate {
	return &Gate{
		username: username,
		password: password,
		store:    store,
	}
}

// Login checks the credential pair in constant time and creates a session on
// success.
func (g *Gate) Login(ctx context.Context, username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	return g.store.Create(ctx)
}

// Check reports whether the cookie token maps to a live session.
func (g *Gate) Check(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	session, err := g.store.Get(ctx, token)
	return err == nil && session != nil
}

// Logout invalidates the session for token.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.store.Delete(ctx, token)
}

func newSession(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
