package domain

import (
	"errors"
	"time"
)

// Provider identifies the authentication method behind an identity link.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderGithub Provider = "GITHUB"
)

// AuthIdentity binds one credential method to exactly one user. A user
// may hold several identities (one per provider); the pair
// (provider, provider_id) is unique across all rows. ProviderID is the
// account email for LOCAL and the provider's subject id for OAuth.
// PasswordHash is set only on LOCAL identities.
type AuthIdentity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Provider     Provider  `json:"provider"`
	ProviderID   string    `json:"provider_id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

var ErrEmailTaken = errors.New("email is already taken")
var ErrUsernameTaken = errors.New("username is already taken")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrIdentityExists = errors.New("identity already linked")
var ErrProfileEmailMissing = errors.New("provider profile has no email address")
