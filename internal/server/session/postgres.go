package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"studyhub/internal/server/database"
)

// Repository is the subset of database.Repository the Postgres store needs.
type Repository interface {
	CreateSession(ctx context.Context, s *database.Session) error
	GetSession(ctx context.Context, tokenHash string) (*database.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

// PostgresStore keeps sessions in the sessions table so they are shared by
// every server instance and survive restarts. Tokens are stored as SHA-256
// hashes.
type PostgresStore struct {
	repo Repository
}

func NewPostgresStore(repo Repository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	return p.repo.CreateSession(ctx, &database.Session{
		TokenHash: hashToken(s.Token),
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	})
}

func (p *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	row, err := p.repo.GetSession(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &Session{
		Token:     token,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (p *PostgresStore) Delete(ctx context.Context, token string) error {
	return p.repo.DeleteSession(ctx, hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
