package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/password"
	"github.com/brightpath/accounts-api/internal/core/ports"
	"github.com/brightpath/accounts-api/internal/core/token"
	"github.com/brightpath/accounts-api/internal/core/username"
)

// AuthService implements local sign-up/sign-in and OAuth identity
// reconciliation. It holds no state across calls; everything persisted
// lives behind the AccountStore.
type AuthService struct {
	store     ports.AccountStore
	hasher    *password.Hasher
	usernames *username.Generator
	issuer    *token.Issuer
	events    ports.EventSink
	log       zerolog.Logger
}

func NewAuthService(store ports.AccountStore, hasher *password.Hasher, usernames *username.Generator, issuer *token.Issuer, events ports.EventSink, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		hasher:    hasher,
		usernames: usernames,
		issuer:    issuer,
		events:    events,
		log:       log,
	}
}

// SignUpLocal registers a new account with email/password credentials.
// The email and username pre-checks are advisory; the storage layer's
// unique indexes are what actually close the race between two
// concurrent sign-ups, and their violations surface as the same
// conflict errors.
func (s *AuthService) SignUpLocal(ctx context.Context, in ports.SignUpInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	uname := in.Username
	if uname != "" {
		if _, err := s.store.FindUserByUsername(ctx, uname); err == nil {
			return nil, domain.ErrUsernameTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	} else {
		uname = s.usernames.UniqueFrom(s.usernames.Random(), s.usernameExists(ctx))
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = uname
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := newUser(email, uname, displayName)
	auth := &domain.AuthIdentity{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Provider:     domain.ProviderLocal,
		ProviderID:   email,
		PasswordHash: hash,
		CreatedAt:    user.CreatedAt,
	}

	created, err := s.store.CreateUserAndAuth(ctx, user, auth)
	if err != nil {
		return nil, err
	}

	s.emit(ports.AccountEvent{Type: ports.EventSignedUp, UserID: created.ID, Provider: domain.ProviderLocal})
	return s.IssueToken(created)
}

// SignInLocal authenticates email/password credentials. Unknown email,
// a LOCAL identity missing its hash and a wrong password all yield the
// same ErrInvalidCredentials so the response cannot be used to
// enumerate accounts.
func (s *AuthService) SignInLocal(ctx context.Context, email, pass string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)

	auth, user, err := s.store.FindAuthWithUser(ctx, domain.ProviderLocal, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// A LOCAL identity without a hash is corrupt data; report it the
	// same way as a wrong password.
	if auth.PasswordHash == "" || !s.hasher.Verify(pass, auth.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	s.emit(ports.AccountEvent{Type: ports.EventSignedIn, UserID: user.ID, Provider: domain.ProviderLocal})
	return s.IssueToken(user)
}

// ValidateOAuthLogin maps an externally-verified identity to exactly one
// user:
//
//  1. an existing (provider, providerID) link is authoritative and is
//     returned as-is, even when the profile's current email no longer
//     matches the stored one — email never re-binds a link;
//  2. otherwise a user with the profile's email adopts the identity as
//     a new link (account merging);
//  3. otherwise a fresh user is created together with the link, with a
//     username derived from the display name.
//
// No token is issued here; the callback handler grants the session.
func (s *AuthService) ValidateOAuthLogin(ctx context.Context, identity ports.ExternalIdentity) (*domain.User, error) {
	if identity.Email == "" {
		s.log.Error().
			Str("provider", string(identity.Provider)).
			Str("provider_id", identity.ProviderID).
			Msg("oauth profile is missing an email address")
		return nil, domain.ErrProfileEmailMissing
	}
	email := normalizeEmail(identity.Email)

	if _, user, err := s.store.FindAuthWithUser(ctx, identity.Provider, identity.ProviderID); err == nil {
		return user, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if user, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return s.linkIdentity(ctx, user, identity)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	uname := s.usernames.UniqueFrom(s.usernames.FromDisplayName(identity.DisplayName), s.usernameExists(ctx))
	user := newUser(email, uname, identity.DisplayName)
	auth := &domain.AuthIdentity{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		CreatedAt:  user.CreatedAt,
	}

	created, err := s.store.CreateUserAndAuth(ctx, user, auth)
	if err != nil {
		return nil, err
	}

	s.emit(ports.AccountEvent{Type: ports.EventSignedUp, UserID: created.ID, Provider: identity.Provider})
	return created, nil
}

// IssueToken grants a session for an already-resolved user.
func (s *AuthService) IssueToken(user *domain.User) (*ports.AuthResult, error) {
	tok, expiresIn, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Token: tok, ExpiresIn: expiresIn, User: user}, nil
}

func (s *AuthService) linkIdentity(ctx context.Context, user *domain.User, identity ports.ExternalIdentity) (*domain.User, error) {
	auth := &domain.AuthIdentity{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		CreatedAt:  nowUTC(),
	}
	if err := s.store.CreateAuthForUser(ctx, auth); err != nil {
		// A concurrent callback for the same identity can win the
		// insert; the established link is then authoritative.
		if errors.Is(err, domain.ErrIdentityExists) {
			_, linked, ferr := s.store.FindAuthWithUser(ctx, identity.Provider, identity.ProviderID)
			if ferr != nil {
				return nil, ferr
			}
			return linked, nil
		}
		return nil, err
	}

	s.emit(ports.AccountEvent{Type: ports.EventLinked, UserID: user.ID, Provider: identity.Provider})
	return user, nil
}

// usernameExists adapts the store lookup to the generator's existence
// check. A transient store error counts as taken, which just burns one
// of the bounded retry attempts.
func (s *AuthService) usernameExists(ctx context.Context) func(string) bool {
	return func(candidate string) bool {
		_, err := s.store.FindUserByUsername(ctx, candidate)
		return !errors.Is(err, domain.ErrUserNotFound)
	}
}

func (s *AuthService) emit(event ports.AccountEvent) {
	if s.events != nil {
		s.events.Emit(event)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
