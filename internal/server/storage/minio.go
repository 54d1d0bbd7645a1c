package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps blobs as objects in a single MinIO / S3 bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the given endpoint. The endpoint may be a bare
// host:port or an http(s) URL; https selects TLS.
func NewMinioStore(rawEndpoint, accessKey, secretKey, bucket string) (*MinioStore, error) {
	endpoint, secure, err := normaliseEndpoint(rawEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid minio endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// EnsureReady creates the bucket when it does not exist yet.
func (ms *MinioStore) EnsureReady(ctx context.Context) error {
	exists, err := ms.client.BucketExists(ctx, ms.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", ms.bucket, err)
	}
	if exists {
		return nil
	}

	if err := ms.client.MakeBucket(ctx, ms.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", ms.bucket, err)
	}
	slog.Info("created storage bucket", "bucket", ms.bucket)
	return nil
}

// Save streams data into an object of unknown length.
func (ms *MinioStore) Save(ctx context.Context, name string, data io.Reader, contentType string) (int64, error) {
	if err := validateObjectName(name); err != nil {
		return 0, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := ms.client.PutObject(ctx, ms.bucket, name, data, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to put object %s: %w", name, err)
	}
	return info.Size, nil
}

// Open returns a reader over an object. The object is stat'ed first so a
// missing key surfaces here rather than on the first Read.
func (ms *MinioStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateObjectName(name); err != nil {
		return nil, err
	}

	obj, err := ms.client.GetObject(ctx, ms.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(name, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinioError(name, err)
	}

	return obj, nil
}

// Delete removes an object. Removing a missing key is not an error in S3.
func (ms *MinioStore) Delete(ctx context.Context, name string) error {
	if err := validateObjectName(name); err != nil {
		return err
	}
	if err := ms.client.RemoveObject(ctx, ms.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", name, err)
	}
	return nil
}

func mapMinioError(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return ErrBlobNotFound
	}
	return fmt.Errorf("failed to get object %s: %w", name, err)
}

func validateObjectName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// normaliseEndpoint accepts "minio:9000" or "http(s)://minio:9000".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("endpoint has no host")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}
