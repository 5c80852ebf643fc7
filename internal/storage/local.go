package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores objects under baseDir/<container>/<key>. URLs are built
// from publicBase when set, otherwise they are file:// URLs. There is no
// signing for local files, so expiry is ignored.
type LocalBackend struct {
	baseDir    string
	publicBase string
}

// NewLocalBackend creates a LocalBackend rooted at baseDir, creating the
// directory if it does not already exist.
func NewLocalBackend(baseDir, publicBase string) (*LocalBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &LocalBackend{baseDir: abs, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// EnsureContainer creates the container directory.
func (b *LocalBackend) EnsureContainer(_ context.Context, container string, _ bool) error {
	if err := os.MkdirAll(filepath.Join(b.baseDir, container), 0o755); err != nil {
		return fmt.Errorf("storage: failed to create container %q: %w", container, err)
	}
	return nil
}

// Put writes reader to the object path, creating intermediate directories.
func (b *LocalBackend) Put(_ context.Context, container, key string, reader io.Reader, _ int64, _ string) error {
	dest := b.path(container, key)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("storage: failed to create directory for %q: %w", key, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("storage: failed to close file %q: %w", dest, err)
	}
	return nil
}

// Exists stats the object path.
func (b *LocalBackend) Exists(_ context.Context, container, key string) (bool, error) {
	_, err := os.Stat(b.path(container, key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: failed to stat %q: %w", key, err)
	}
	return true, nil
}

// Delete removes the object file. Missing files are not an error.
func (b *LocalBackend) Delete(_ context.Context, container, key string) error {
	err := os.Remove(b.path(container, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %q: %w", key, err)
	}
	return nil
}

// URL returns "<publicBase>/<container>/<key>" or a file:// URL.
func (b *LocalBackend) URL(_ context.Context, container, key string, _ time.Duration) (string, error) {
	if b.publicBase != "" {
		return b.publicBase + "/" + container + "/" + key, nil
	}
	fileURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(b.path(container, key))}
	return fileURL.String(), nil
}

func (b *LocalBackend) path(container, key string) string {
	return filepath.Join(b.baseDir, container, filepath.FromSlash(key))
}
