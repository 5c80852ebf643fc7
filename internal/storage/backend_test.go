package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesomeproject/service/internal/config"
)

func TestNewBackendSelectsLocal(t *testing.T) {
	cfg := &config.Config{StorageBackend: "local", StorageLocalDir: t.TempDir()}

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalBackend{}, b)
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend(context.Background(), &config.Config{StorageBackend: "ftp"})
	assert.ErrorContains(t, err, `unknown storage backend "ftp"`)
}

func TestMinioPublicURL(t *testing.T) {
	b, err := NewMinioBackend("localhost:9000", "key", "secret", "http://cdn.example/", false)
	require.NoError(t, err)

	u, err := b.URL(context.Background(), "static", "img/logo.svg", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/static/img/logo.svg", u)
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Statement []struct {
			Action   string
			Resource string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(publicReadPolicy("static")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "s3:GetObject", policy.Statement[0].Action)
	assert.Equal(t, "arn:aws:s3:::static/*", policy.Statement[0].Resource)
}
