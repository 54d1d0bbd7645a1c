package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrFileNotFound    = errors.New("file not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Repository provides CRUD operations for users, files and sessions.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user. A concurrent registration that loses the
// race on the email constraint gets ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up a user by exact email match.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateFile inserts a new file record.
func (r *Repository) CreateFile(ctx context.Context, file *File) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO files (
			id, original_name, stored_name, content_type, size, uploaded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		file.ID,
		file.OriginalName,
		file.StoredName,
		file.ContentType,
		file.Size,
		file.UploadedBy,
		file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetFileByID retrieves a file record by its ID.
func (r *Repository) GetFileByID(ctx context.Context, id string) (*File, error) {
	file := &File{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, original_name, stored_name, content_type, size, uploaded_by, created_at
		FROM files WHERE id = $1
	`, id).Scan(
		&file.ID,
		&file.OriginalName,
		&file.StoredName,
		&file.ContentType,
		&file.Size,
		&file.UploadedBy,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// ListFiles returns every file record in insertion order.
func (r *Repository) ListFiles(ctx context.Context) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, original_name, stored_name, content_type, size, uploaded_by, created_at
		FROM files ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := []*File{}
	for rows.Next() {
		file := &File{}
		if err := rows.Scan(
			&file.ID,
			&file.OriginalName,
			&file.StoredName,
			&file.ContentType,
			&file.Size,
			&file.UploadedBy,
			&file.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// CreateSession stores a session keyed by the hash of its token.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`,
		s.TokenHash,
		s.UserID,
		s.CreatedAt,
		s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns an unexpired session by token hash.
func (r *Repository) GetSession(ctx context.Context, tokenHash string) (*Session, error) {
	s := &Session{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT token_hash, user_id, created_at, expires_at
		FROM sessions WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash).Scan(
		&s.TokenHash,
		&s.UserID,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := r.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE token_hash = $1", tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session past its expiry and reports how many went.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
