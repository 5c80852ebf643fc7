package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend implements Backend using a MinIO (or any S3-compatible)
// server. Each container maps to a bucket.
type MinioBackend struct {
	client     *minio.Client
	publicBase string
}

// NewMinioBackend creates a MinIO client. publicBase is the browser-facing
// base URL under which buckets are reachable, e.g. "http://localhost:9000".
func NewMinioBackend(endpoint, accessKey, secretKey, publicBase string, useSSL bool) (*MinioBackend, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioBackend{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// EnsureContainer creates the bucket if needed and, for public containers,
// applies an anonymous-read policy.
func (b *MinioBackend) EnsureContainer(ctx context.Context, container string, public bool) error {
	exists, err := b.client.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, container, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", container, err)
		}
		slog.Info("storage: created bucket", "bucket", container)
	}

	if public {
		if err := b.client.SetBucketPolicy(ctx, container, publicReadPolicy(container)); err != nil {
			return fmt.Errorf("set bucket policy: %w", err)
		}
	}
	return nil
}

// Put streams reader to MinIO under key.
func (b *MinioBackend) Put(ctx context.Context, container, key string, reader io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, container, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Exists stats the object.
func (b *MinioBackend) Exists(ctx context.Context, container, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat object %q: %w", key, err)
}

// Delete removes the object at key from the bucket.
func (b *MinioBackend) Delete(ctx context.Context, container, key string) error {
	return b.client.RemoveObject(ctx, container, key, minio.RemoveObjectOptions{})
}

// URL returns "<publicBase>/<bucket>/<key>" when expiry is zero, and a
// presigned GET URL otherwise.
func (b *MinioBackend) URL(ctx context.Context, container, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return b.publicBase + "/" + container + "/" + key, nil
	}

	u, err := b.client.PresignedGetObject(ctx, container, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return u.String(), nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
