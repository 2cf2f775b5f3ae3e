package ports

import (
	"context"

	"github.com/brightpath/accounts-api/internal/core/domain"
)

// SignUpInput carries the fields of a local registration. Username and
// DisplayName are optional; the service derives both when absent.
type SignUpInput struct {
	Email       string
	Username    string
	DisplayName string
	Password    string
}

// AuthResult is the outcome of a successful sign-up or sign-in.
type AuthResult struct {
	Token     string
	ExpiresIn int64
	User      *domain.User
}

// AuthService orchestrates local credentials and OAuth reconciliation.
type AuthService interface {
	SignUpLocal(ctx context.Context, in SignUpInput) (*AuthResult, error)
	SignInLocal(ctx context.Context, email, password string) (*AuthResult, error)

	// ValidateOAuthLogin resolves an externally-verified identity to
	// exactly one user: an existing link wins, then an email match
	// merges the identity into that account, otherwise a fresh user is
	// created. It never issues a token; callers do that afterwards.
	ValidateOAuthLogin(ctx context.Context, identity ExternalIdentity) (*domain.User, error)

	// IssueToken grants a session for an already-resolved user.
	IssueToken(user *domain.User) (*AuthResult, error)
}

// UserService exposes account reads for the HTTP layer.
type UserService interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
