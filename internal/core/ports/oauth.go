package ports

import (
	"context"

	"github.com/brightpath/accounts-api/internal/core/domain"
)

// ExternalIdentity is a normalized OAuth profile as reported by a
// provider adapter. It carries facts only; matching and account
// creation decisions belong to the AuthService. Email may be empty when
// the provider withholds it — the service treats that as a hard
// failure.
type ExternalIdentity struct {
	Provider    domain.Provider
	ProviderID  string
	DisplayName string
	Email       string
}

// OAuthProvider abstracts one upstream identity provider.
type OAuthProvider interface {
	Name() domain.Provider

	// AuthCodeURL builds the consent-page URL carrying the given
	// anti-forgery state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the provider's profile.
	Exchange(ctx context.Context, code string) (ExternalIdentity, error)
}

// StateStore hands out single-use anti-forgery state tokens for the
// OAuth redirect round-trip.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	// Consume invalidates state and reports whether it was outstanding.
	Consume(ctx context.Context, state string) (bool, error)
}
