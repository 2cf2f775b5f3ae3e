package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

// UserService serves account reads for the HTTP layer.
type UserService struct {
	store ports.AccountStore
}

func NewUserService(store ports.AccountStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.store.FindUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.store.ListUsers(ctx)
}

func newUser(email, uname, displayName string) *domain.User {
	now := nowUTC()
	return &domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		Username:    uname,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
