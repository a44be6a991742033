// Package user implements tenant-scoped account provisioning. Accounts are
// created by tenant admins; there is no self-service registration.
package user

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/pkg/id"
	"github.com/schoolstream/internal/pkg/validate"
)

// Store is the persistence interface the service requires.
type Store interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error)
	SoftDelete(ctx context.Context, userID string) error
}

// SessionDisabler disables a user's sessions when the account is removed.
type SessionDisabler interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type Service interface {
	Create(ctx context.Context, tenantID string, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, tenantID, userID string) (*domain.User, error)
	List(ctx context.Context, tenantID string) ([]domain.User, error)
	Delete(ctx context.Context, tenantID, userID string) error
}

type service struct {
	repo     Store
	sessions SessionDisabler
}

func NewService(repo Store, sessions SessionDisabler) Service {
	return &service{repo: repo, sessions: sessions}
}

func (s *service) Create(ctx context.Context, tenantID string, req domain.CreateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("unknown role %q: %w", req.Role, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email taken: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		TenantID:     tenantID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TenantID != tenantID {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (s *service) List(ctx context.Context, tenantID string) ([]domain.User, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *service) Delete(ctx context.Context, tenantID, userID string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.TenantID != tenantID {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err := s.repo.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.sessions.SoftDeleteByUser(ctx, userID)
}
