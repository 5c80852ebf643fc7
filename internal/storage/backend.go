package storage

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/awesomeproject/service/internal/config"
)

// NewBackend builds the Backend selected by cfg.StorageBackend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case "minio":
		return NewMinioBackend(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
		)
	case "gcs":
		var opts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}
		return NewGCSBackend(ctx, opts...)
	case "local":
		return NewLocalBackend(cfg.StorageLocalDir, cfg.StoragePublicBase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
