// Package session issues opaque login tokens and maps them back to a user id.
//
// The Manager owns the token table. Storage is pluggable through Store so an
// in-process LRU and the Postgres sessions table are interchangeable.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrSessionNotFound is returned for unknown, expired or destroyed tokens.
var ErrSessionNotFound = errors.New("session not found")

// tokenLength gives ~285 bits of entropy over the 62-symbol alphabet.
const tokenLength = 48

// Session binds a token to a user id. Nothing else about the user is kept.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Store persists sessions by token.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Manager creates, validates and destroys sessions.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a manager whose sessions live for ttl.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL is the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a new session for userID.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	token, err := generateSecureToken(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now().UTC()
	s := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

// Validate resolves a token to a live session.
func (m *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, token)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy removes a session. Unknown tokens are not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, token)
}

// generateSecureToken produces a cryptographically secure, URL-safe random string.
func generateSecureToken(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
