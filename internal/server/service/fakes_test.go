package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"studyhub/internal/server/database"
)

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*database.User
	lookupErr error
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]*database.User)}
}

func (f *fakeUsers) CreateUser(ctx context.Context, user *database.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return database.ErrDuplicateEmail
	}
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return u, nil
}

type fakeFiles struct {
	mu        sync.Mutex
	files     []*database.File
	createErr error
}

func (f *fakeFiles) CreateFile(ctx context.Context, file *database.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.files = append(f.files, file)
	return nil
}

func (f *fakeFiles) GetFileByID(ctx context.Context, id string) (*database.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files {
		if file.ID == id {
			return file, nil
		}
	}
	return nil, database.ErrFileNotFound
}

func (f *fakeFiles) ListFiles(ctx context.Context) ([]*database.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*database.File, len(f.files))
	copy(out, f.files)
	return out, nil
}

// brokenBlobStore fails every operation except Delete, which it records.
type brokenBlobStore struct {
	deleted []string
}

func (b *brokenBlobStore) Save(ctx context.Context, name string, data io.Reader, contentType string) (int64, error) {
	return 0, errors.New("disk full")
}

func (b *brokenBlobStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return nil, errors.New("i/o error")
}

func (b *brokenBlobStore) Delete(ctx context.Context, name string) error {
	b.deleted = append(b.deleted, name)
	return nil
}

func (b *brokenBlobStore) EnsureReady(ctx context.Context) error {
	return nil
}
