// Package storage defines the named storage profiles used by the application
// and the blob backends they are served from. Swap backends by changing the
// concrete type injected at startup; the MinIO implementation works with any
// S3-compatible provider, GCSBackend with Google Cloud Storage, and
// LocalBackend with a directory on disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidName is returned for empty or escaping object names.
	ErrInvalidName = errors.New("invalid object name")

	// ErrNameExhausted is returned when no free name could be found for an
	// upload to a profile that forbids overwriting.
	ErrNameExhausted = errors.New("no available object name")
)

// Backend is a generic blob store organised in containers (buckets).
type Backend interface {
	// EnsureContainer makes sure the container exists. When public is true
	// its objects are made anonymously readable where the backend supports it.
	EnsureContainer(ctx context.Context, container string, public bool) error
	// Put streams data to container/key, replacing any existing object.
	// size must be the exact byte count, or -1 when unknown.
	Put(ctx context.Context, container, key string, reader io.Reader, size int64, contentType string) error
	// Exists reports whether container/key is present.
	Exists(ctx context.Context, container, key string) (bool, error)
	// Delete removes container/key.
	Delete(ctx context.Context, container, key string) error
	// URL returns an access URL for container/key. A zero expiry yields a
	// plain public URL; otherwise the URL is signed and valid for expiry.
	URL(ctx context.Context, container, key string, expiry time.Duration) (string, error)
}

// Storage is the interface handlers use to persist files under a profile.
type Storage interface {
	// Save stores reader under name and returns the name actually used,
	// which differs from name when the profile forbids overwriting.
	Save(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object stored under name.
	Delete(ctx context.Context, name string) error
	// URL constructs the browser-accessible URL for name.
	URL(ctx context.Context, name string) (string, error)
	// Profile returns the configuration the storage was built from.
	Profile() Profile
}
