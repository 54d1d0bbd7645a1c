package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"studyhub/internal/server/database"
	"studyhub/internal/server/storage"

	"github.com/google/uuid"
)

const (
	defaultContentType = "application/octet-stream"

	// column widths of users.name and files.content_type
	maxNameLength        = 255
	maxContentTypeLength = 255
)

// FileRepository is the part of database.Repository that file handling needs.
type FileRepository interface {
	CreateFile(ctx context.Context, file *database.File) error
	GetFileByID(ctx context.Context, id string) (*database.File, error)
	ListFiles(ctx context.Context) ([]*database.File, error)
}

// FileRecord is the metadata returned to clients for an uploaded file.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"-"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileService contains the business logic for uploads and downloads.
type FileService struct {
	repo  FileRepository
	store storage.Store
	now   func() time.Time
}

// NewFileService creates a new file service.
func NewFileService(repo FileRepository, store storage.Store) *FileService {
	return &FileService{
		repo:  repo,
		store: store,
		now:   time.Now,
	}
}

// Upload streams r into the blob store under a generated name and records
// it. If the bytes do not land, no record is created.
func (s *FileService) Upload(ctx context.Context, userID, originalName, contentType string, r io.Reader) (*FileRecord, error) {
	name := sanitizeFilename(originalName)
	contentType = normalizeContentType(contentType)

	now := s.now().UTC()
	storedName := generateStoredName(now, name)

	size, err := s.store.Save(ctx, storedName, r, contentType)
	if err != nil {
		// Remove whatever a backend may have left half-written.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), storedName); delErr != nil {
			slog.Warn("failed to remove partial blob", "stored_name", storedName, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	file := &database.File{
		ID:           uuid.NewString(),
		OriginalName: name,
		StoredName:   storedName,
		ContentType:  contentType,
		Size:         size,
		CreatedAt:    now,
	}
	if userID != "" {
		file.UploadedBy = &userID
	}

	if err := s.repo.CreateFile(ctx, file); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), storedName); delErr != nil {
			slog.Error("failed to remove orphaned blob", "stored_name", storedName, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	slog.Info("file uploaded",
		"id", file.ID,
		"original_name", file.OriginalName,
		"stored_name", storedName,
		"size", size,
		"user_id", userID,
	)

	return toFileRecord(file), nil
}

// Open resolves id and returns the record with a reader over its bytes. The
// caller closes the reader.
func (s *FileService) Open(ctx context.Context, id string) (*FileRecord, io.ReadCloser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrNotFound
	}

	file, err := s.repo.GetFileByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get file record: %w", err)
	}

	rc, err := s.store.Open(ctx, file.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Warn("file record has no blob", "id", file.ID, "stored_name", file.StoredName)
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	return toFileRecord(file), rc, nil
}

// List returns every file record in upload order.
func (s *FileService) List(ctx context.Context) ([]*FileRecord, error) {
	files, err := s.repo.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	records := make([]*FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, toFileRecord(f))
	}
	return records, nil
}

func toFileRecord(f *database.File) *FileRecord {
	rec := &FileRecord{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		StoredName:   f.StoredName,
		ContentType:  f.ContentType,
		Size:         f.Size,
		UploadedAt:   f.CreatedAt,
	}
	if f.UploadedBy != nil {
		rec.UploadedBy = *f.UploadedBy
	}
	return rec
}

// generateStoredName builds "<unix-millis>-<random><ext>" where ext is the
// lower-cased extension of name, kept only when it is short and alphanumeric.
func generateStoredName(now time.Time, name string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), random, safeExtension(name))
}

func safeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return ""
		}
	}
	return ext
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// filepath.Base is platform-specific; fold Windows separators first.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) > 32 {
			ext = ""
		}
		name = name[:255-len(ext)] + ext
	}
	// Postgres rejects invalid UTF-8, and the cut above may split a rune.
	name = strings.ToValidUTF8(name, "")

	if name == "" || name == "." || name == "/" || name == ".." {
		name = "upload"
	}

	return name
}

// normalizeContentType returns a canonical media type, or the default when the
// client sent nothing usable.
func normalizeContentType(contentType string) string {
	if contentType == "" || len(contentType) > maxContentTypeLength {
		return defaultContentType
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return defaultContentType
	}
	normalized := mime.FormatMediaType(mediaType, params)
	if normalized == "" || len(normalized) > maxContentTypeLength {
		return defaultContentType
	}
	return normalized
}
