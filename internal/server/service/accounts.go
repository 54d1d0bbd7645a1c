package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"studyhub/internal/server/database"
	"studyhub/internal/server/session"

	"github.com/google/uuid"
)

// UserRepository is the part of database.Repository that accounts need.
type UserRepository interface {
	CreateUser(ctx context.Context, user *database.User) error
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
}

// UserIdentity is a registered account without its credentials.
type UserIdentity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountService handles registration, login and logout.
type AccountService struct {
	users    UserRepository
	hasher   *Hasher
	sessions *session.Manager
}

// NewAccountService creates a new account service.
func NewAccountService(users UserRepository, hasher *Hasher, sessions *session.Manager) *AccountService {
	return &AccountService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Register validates the input and creates a new account.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*UserIdentity, error) {
	if !ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}

	if result := ValidatePassword(password); !result.OK() {
		slog.Info("registration rejected", "reason", "weak_password", "unmet", result.Unmet())
		return nil, ErrWeakPassword
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, database.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &database.User{
		ID:           uuid.NewString(),
		Name:         truncateRunes(strings.TrimSpace(name), maxNameLength),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)

	return &UserIdentity{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Login checks the credentials and starts a session. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			s.hasher.burn(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.ID)
	return sess, nil
}

// Logout destroys the session behind token.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token. Any lookup failure is reported as
// ErrUnauthenticated, wrapped when it was not a plain miss.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	sess, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return sess, nil
}

// SessionTTL is how long a new session stays valid.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
