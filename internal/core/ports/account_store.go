package ports

import (
	"context"

	"github.com/brightpath/accounts-api/internal/core/domain"
)

// AccountStore is the persistence contract for users and their identity
// links. Implementations must enforce unique indexes on user email,
// user username and the (provider, provider_id) pair, and must surface
// violations as the matching domain errors so the service can report a
// conflict even when two requests race past the advisory pre-checks.
type AccountStore interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// FindAuthWithUser resolves an identity link and its owning user in
	// one lookup. Returns domain.ErrUserNotFound when no link exists.
	FindAuthWithUser(ctx context.Context, provider domain.Provider, providerID string) (*domain.AuthIdentity, *domain.User, error)

	// CreateUserAndAuth persists a user and its first identity link in a
	// single transaction: either both rows commit or neither does.
	CreateUserAndAuth(ctx context.Context, user *domain.User, auth *domain.AuthIdentity) (*domain.User, error)

	// CreateAuthForUser links an additional identity to an existing user.
	CreateAuthForUser(ctx context.Context, auth *domain.AuthIdentity) error
}
