package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackendURL(t *testing.T) {
	ctx := context.Background()

	withBase, err := NewLocalBackend(t.TempDir(), "http://localhost:8080/files/")
	require.NoError(t, err)
	u, err := withBase.URL(ctx, "static", "css/site.css", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/static/css/site.css", u)

	noBase, err := NewLocalBackend(t.TempDir(), "")
	require.NoError(t, err)
	u, err = noBase.URL(ctx, "media", "a.png", MediaURLExpiration)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/media/a.png"))
}

func TestLocalBackendDeleteMissingIsNoop(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir(), "")
	require.NoError(t, err)
	assert.NoError(t, b.Delete(context.Background(), "media", "nothing-here"))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalBackendPutFailureLeavesNoObject(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocalBackend(t.TempDir(), "")
	require.NoError(t, err)

	err = b.Put(ctx, "media", "avatars/u1/me.png", failingReader{}, -1, "image/png")
	assert.ErrorContains(t, err, "connection reset")

	ok, err := b.Exists(ctx, "media", "avatars/u1/me.png")
	require.NoError(t, err)
	assert.False(t, ok, "a failed write must not look like a stored object")

	require.NoError(t, b.Put(ctx, "media", "avatars/u1/me.png", strings.NewReader("png"), 3, "image/png"))
	ok, err = b.Exists(ctx, "media", "avatars/u1/me.png")
	require.NoError(t, err)
	assert.True(t, ok)
}
