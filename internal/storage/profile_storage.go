package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const maxNameAttempts = 100

// ProfileStorage applies a Profile on top of a Backend.
type ProfileStorage struct {
	profile   Profile
	backend   Backend
	container string
}

// NewProfileStorage binds profile to backend. prefix is prepended to the
// profile container to form the backend container name.
func NewProfileStorage(profile Profile, backend Backend, prefix string) *ProfileStorage {
	return &ProfileStorage{
		profile:   profile,
		backend:   backend,
		container: prefix + profile.Container,
	}
}

// Open ensures the container of every profile exists and returns a
// ProfileStorage per profile, keyed by profile name.
func Open(ctx context.Context, backend Backend, prefix string) (map[string]*ProfileStorage, error) {
	out := make(map[string]*ProfileStorage)
	for _, p := range Profiles() {
		s := NewProfileStorage(p, backend, prefix)
		if err := backend.EnsureContainer(ctx, s.container, p.Public()); err != nil {
			return nil, fmt.Errorf("prepare %s storage: %w", p.Name, err)
		}
		out[p.Name] = s
	}
	return out, nil
}

// Profile returns the profile this storage applies.
func (s *ProfileStorage) Profile() Profile {
	return s.profile
}

// Container returns the backend container name.
func (s *ProfileStorage) Container() string {
	return s.container
}

// Save uploads reader under name. When the profile forbids overwriting and
// name is taken, a suffix is added until a free name is found. The existence
// check and the upload are not atomic.
func (s *ProfileStorage) Save(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	key, err := cleanName(name)
	if err != nil {
		return "", err
	}

	if !s.profile.OverwriteOnConflict {
		key, err = s.availableName(ctx, key)
		if err != nil {
			return "", err
		}
	}

	if err := s.backend.Put(ctx, s.container, key, reader, size, contentType); err != nil {
		return "", fmt.Errorf("save %q to %s: %w", key, s.container, err)
	}
	return key, nil
}

// Delete removes the object stored under name.
func (s *ProfileStorage) Delete(ctx context.Context, name string) error {
	key, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, s.container, key); err != nil {
		return fmt.Errorf("delete %q from %s: %w", key, s.container, err)
	}
	return nil
}

// URL returns a public URL for static-like profiles and a signed URL valid
// for the profile expiration otherwise.
func (s *ProfileStorage) URL(ctx context.Context, name string) (string, error) {
	key, err := cleanName(name)
	if err != nil {
		return "", err
	}
	u, err := s.backend.URL(ctx, s.container, key, s.profile.Expiration)
	if err != nil {
		return "", fmt.Errorf("url for %q in %s: %w", key, s.container, err)
	}
	return u, nil
}

// availableName returns key if it is free, otherwise key with a random
// suffix inserted before the extension, e.g. "a/photo_3f9c2ab.jpg".
func (s *ProfileStorage) availableName(ctx context.Context, key string) (string, error) {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	root := strings.TrimSuffix(file, ext)

	candidate := key
	for i := 0; i < maxNameAttempts; i++ {
		exists, err := s.backend.Exists(ctx, s.container, candidate)
		if err != nil {
			return "", fmt.Errorf("check %q in %s: %w", candidate, s.container, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = dir + root + "_" + randomSuffix() + ext
	}
	return "", fmt.Errorf("%w for %q in %s", ErrNameExhausted, key, s.container)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

// cleanName normalises an object name to a slash-separated relative key.
func cleanName(name string) (string, error) {
	key := strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if key == "" || key == "." || strings.HasSuffix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return key, nil
}
