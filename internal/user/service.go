package user

import (
	"context"
	"errors"
	"fmt"
)

// Store is the persistence Service depends on. Repository implements it.
type Store interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, phone, accountType string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	SetAvatar(ctx context.Context, id, key string) error
}

// Service contains business logic for user management.
type Service struct {
	repo Store
}

// NewService creates a new user Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Count returns the total number of users. The store error, if any, is
// passed through untouched.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Create registers a new user account.
func (s *Service) Create(ctx context.Context, phone, accountType string) (*User, error) {
	u, err := s.repo.Create(ctx, phone, accountType)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByPhone returns a user by their phone number.
func (s *Service) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return s.repo.GetByPhone(ctx, phone)
}

// SetAvatar stores the media key of the user's avatar.
func (s *Service) SetAvatar(ctx context.Context, id, key string) error {
	return s.repo.SetAvatar(ctx, id, key)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
