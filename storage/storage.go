// Package storage keeps manuscript artifact bytes on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound      = errors.New("artifact not found")
	ErrInvalidUpload = errors.New("invalid upload")
)

// Backend persists artifact bytes under a key.
type Backend interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by backends that can hand out time-limited
// download links.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
