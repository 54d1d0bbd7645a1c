package database

import "time"

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// File is the metadata of an uploaded file. The bytes live in the blob store
// under StoredName.
type File struct {
	ID           string
	OriginalName string
	StoredName   string
	ContentType  string
	Size         int64
	UploadedBy   *string // nil once the uploader is deleted
	CreatedAt    time.Time
}

// Session is a persisted login session. Only a hash of the token is stored.
type Session struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
