package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicBase = "https://storage.googleapis.com"

// GCSBackend implements Backend on Google Cloud Storage. Buckets must be
// provisioned ahead of time; public access is granted through IAM, not here.
type GCSBackend struct {
	client *gcs.Client
}

// NewGCSBackend creates a GCSBackend. opts are passed through to the
// underlying GCS client, allowing credential injection.
func NewGCSBackend(ctx context.Context, opts ...option.ClientOption) (*GCSBackend, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSBackend{client: client}, nil
}

// EnsureContainer checks that the bucket exists.
func (b *GCSBackend) EnsureContainer(ctx context.Context, container string, public bool) error {
	if _, err := b.client.Bucket(container).Attrs(ctx); err != nil {
		if errors.Is(err, gcs.ErrBucketNotExist) {
			return fmt.Errorf("storage: bucket %q does not exist", container)
		}
		return fmt.Errorf("storage: failed to read bucket %q: %w", container, err)
	}
	if public {
		slog.Debug("storage: GCS bucket expected to grant public read through IAM", "bucket", container)
	}
	return nil
}

// Put writes reader to GCS at container/key.
func (b *GCSBackend) Put(ctx context.Context, container, key string, reader io.Reader, _ int64, contentType string) error {
	w := b.client.Bucket(container).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: upload write failed for %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: upload close failed for %q: %w", key, err)
	}
	return nil
}

// Exists reads the object attributes.
func (b *GCSBackend) Exists(ctx context.Context, container, key string) (bool, error) {
	_, err := b.client.Bucket(container).Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: failed to read attributes of %q: %w", key, err)
	}
	return true, nil
}

// Delete removes container/key.
func (b *GCSBackend) Delete(ctx context.Context, container, key string) error {
	if err := b.client.Bucket(container).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("storage: failed to delete %q: %w", key, err)
	}
	return nil
}

// URL returns the public object URL when expiry is zero, and a V4 signed
// URL otherwise.
func (b *GCSBackend) URL(_ context.Context, container, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return gcsPublicBase + "/" + container + "/" + key, nil
	}

	signedURL, err := b.client.Bucket(container).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to sign URL for %q: %w", key, err)
	}
	return signedURL, nil
}

// Close releases the underlying client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
