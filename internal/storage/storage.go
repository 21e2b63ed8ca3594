package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	cfg "github.com/templui/docshelf/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Storage holds document bodies addressed by path.
type Storage interface {
	Save(ctx context.Context, path string, file io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Presigner is implemented by backends that can hand out time-limited
// direct download links.
type Presigner interface {
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// New picks S3 when a bucket is configured. Development without a bucket
// falls back to process memory.
func New(c *cfg.Config) (Storage, error) {
	if c.S3Bucket == "" && c.IsDevelopment() {
		slog.Warn("S3_BUCKET not set, storing documents in memory")
		return NewMemoryStorage(), nil
	}

	slog.Info("initializing S3 storage",
		"bucket", c.S3Bucket,
		"region", c.S3Region,
		"endpoint", c.S3Endpoint,
	)
	return NewS3Storage(S3Config{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
	})
}
