package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brightpath/accounts-api/internal/core/domain"
	"github.com/brightpath/accounts-api/internal/core/password"
	"github.com/brightpath/accounts-api/internal/core/ports"
	"github.com/brightpath/accounts-api/internal/core/token"
	"github.com/brightpath/accounts-api/internal/core/username"
)

// stubStore is an in-memory AccountStore enforcing the same uniqueness
// rules as the Mongo implementation. createFails simulates a storage
// failure during the transactional create: nothing is persisted.
type stubStore struct {
	users       map[string]*domain.User         // by id
	auths       map[string]*domain.AuthIdentity // by provider/providerID
	createFails bool
}

func newStubStore() *stubStore {
	return &stubStore{
		users: make(map[string]*domain.User),
		auths: make(map[string]*domain.AuthIdentity),
	}
}

func authKey(p domain.Provider, pid string) string { return string(p) + "/" + pid }

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) FindUserByUsername(_ context.Context, uname string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == uname {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *stubStore) ListUsers(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubStore) FindAuthWithUser(ctx context.Context, p domain.Provider, pid string) (*domain.AuthIdentity, *domain.User, error) {
	a, ok := s.auths[authKey(p, pid)]
	if !ok {
		return nil, nil, domain.ErrUserNotFound
	}
	u, err := s.FindUserByID(ctx, a.UserID)
	if err != nil {
		return nil, nil, err
	}
	clone := *a
	return &clone, u, nil
}

func (s *stubStore) CreateUserAndAuth(ctx context.Context, user *domain.User, auth *domain.AuthIdentity) (*domain.User, error) {
	if s.createFails {
		return nil, errors.New("storage unavailable")
	}
	if _, err := s.FindUserByEmail(ctx, user.Email); err == nil {
		return nil, domain.ErrEmailTaken
	}
	if _, err := s.FindUserByUsername(ctx, user.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	}
	if _, ok := s.auths[authKey(auth.Provider, auth.ProviderID)]; ok {
		return nil, domain.ErrIdentityExists
	}
	uc, ac := *user, *auth
	s.users[uc.ID] = &uc
	s.auths[authKey(ac.Provider, ac.ProviderID)] = &ac
	return user, nil
}

func (s *stubStore) CreateAuthForUser(_ context.Context, auth *domain.AuthIdentity) error {
	if _, ok := s.auths[authKey(auth.Provider, auth.ProviderID)]; ok {
		return domain.ErrIdentityExists
	}
	clone := *auth
	s.auths[authKey(clone.Provider, clone.ProviderID)] = &clone
	return nil
}

type recordingSink struct {
	events []ports.AccountEvent
}

func (r *recordingSink) Emit(e ports.AccountEvent) { r.events = append(r.events, e) }

func newTestService(store ports.AccountStore, sink ports.EventSink) *AuthService {
	gen := username.NewGenerator(rand.New(rand.NewSource(1)), nil)
	return NewAuthService(
		store,
		password.NewHasher(4), // minimum bcrypt cost keeps tests fast
		gen,
		token.NewIssuer("test-secret", time.Hour),
		sink,
		zerolog.Nop(),
	)
}

func TestSignUpLocal_Success(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	res, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{
		Email:    "A@X.com",
		Username: "alice",
		Password: "Valid1!x",
	})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected a token")
	}
	if res.User.Username != "alice" {
		t.Fatalf("unexpected username: %s", res.User.Username)
	}
	if res.User.Email != "a@x.com" {
		t.Fatalf("email not normalized: %s", res.User.Email)
	}
	if res.User.DisplayName != "alice" {
		t.Fatalf("display name should default to username, got %s", res.User.DisplayName)
	}

	auth, ok := store.auths[authKey(domain.ProviderLocal, "a@x.com")]
	if !ok {
		t.Fatalf("expected a LOCAL identity keyed by email")
	}
	if auth.PasswordHash == "" || auth.PasswordHash == "Valid1!x" {
		t.Fatalf("password not hashed: %q", auth.PasswordHash)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != res.User.ID || claims["username"] != "alice" || claims["email"] != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSignUpLocal_EmailTaken(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	in := ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"}
	if _, err := svc.SignUpLocal(context.Background(), in); err != nil {
		t.Fatalf("first sign-up failed: %v", err)
	}

	in.Username = "alice2"
	if _, err := svc.SignUpLocal(context.Background(), in); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(store.users) != 1 {
		t.Fatalf("duplicate sign-up created a user")
	}
}

func TestSignUpLocal_UsernameTaken(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	if _, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"}); err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	_, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "b@x.com", Username: "alice", Password: "Valid1!x"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSignUpLocal_GeneratesUsername(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	res, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Password: "Valid1!x"})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	if res.User.Username == "" {
		t.Fatalf("expected a generated username")
	}
	if res.User.DisplayName != res.User.Username {
		t.Fatalf("display name should default to generated username")
	}
}

func TestSignUpLocal_StorageFailureCreatesNothing(t *testing.T) {
	store := newStubStore()
	store.createFails = true
	svc := newTestService(store, nil)

	_, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if len(store.users) != 0 || len(store.auths) != 0 {
		t.Fatalf("partial rows persisted: %d users, %d auths", len(store.users), len(store.auths))
	}
}

func TestSignInLocal_Success(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	if _, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "carol@x.com", Username: "carol", Password: "S3cret!pw"}); err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}

	res, err := svc.SignInLocal(context.Background(), "Carol@X.com", "S3cret!pw")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if res.Token == "" || res.User.Username != "carol" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// Unknown email, wrong password and a hashless LOCAL identity must be
// indistinguishable to the caller.
func TestSignInLocal_UniformFailures(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	if _, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "dave@x.com", Username: "dave", Password: "G00dpass!"}); err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}

	_, wrongPass := svc.SignInLocal(context.Background(), "dave@x.com", "badpass")
	_, unknown := svc.SignInLocal(context.Background(), "ghost@x.com", "badpass")
	if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPass, unknown)
	}

	// Corrupt data: LOCAL identity with no hash.
	store.auths[authKey(domain.ProviderLocal, "dave@x.com")].PasswordHash = ""
	if _, err := svc.SignInLocal(context.Background(), "dave@x.com", "G00dpass!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for missing hash, got %v", err)
	}
}

func TestValidateOAuthLogin_NewIdentity(t *testing.T) {
	store := newStubStore()
	sink := &recordingSink{}
	svc := newTestService(store, sink)

	user, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider:    domain.ProviderGoogle,
		ProviderID:  "g1",
		DisplayName: "John Doe",
		Email:       "John@X.com",
	})
	if err != nil {
		t.Fatalf("oauth login failed: %v", err)
	}
	if user.Email != "john@x.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.DisplayName != "John Doe" {
		t.Fatalf("unexpected display name: %s", user.DisplayName)
	}
	const prefix = "john_doe_"
	if len(user.Username) != len(prefix)+4 || user.Username[:len(prefix)] != prefix {
		t.Fatalf("expected username john_doe_NNNN, got %s", user.Username)
	}

	auth := store.auths[authKey(domain.ProviderGoogle, "g1")]
	if auth == nil || auth.UserID != user.ID || auth.PasswordHash != "" {
		t.Fatalf("unexpected identity link: %+v", auth)
	}
	if len(sink.events) != 1 || sink.events[0].Type != ports.EventSignedUp {
		t.Fatalf("expected one signed-up event, got %+v", sink.events)
	}
}

func TestValidateOAuthLogin_Idempotent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	id := ports.ExternalIdentity{Provider: domain.ProviderGoogle, ProviderID: "g1", DisplayName: "A", Email: "a@x.com"}
	first, err := svc.ValidateOAuthLogin(context.Background(), id)
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := svc.ValidateOAuthLogin(context.Background(), id)
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same identity resolved to different users: %s vs %s", first.ID, second.ID)
	}
	if len(store.auths) != 1 {
		t.Fatalf("expected exactly one identity link, got %d", len(store.auths))
	}
}

func TestValidateOAuthLogin_EmailMerge(t *testing.T) {
	store := newStubStore()
	sink := &recordingSink{}
	svc := newTestService(store, sink)

	res, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}

	merged, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGoogle, ProviderID: "g1", DisplayName: "A", Email: "a@x.com",
	})
	if err != nil {
		t.Fatalf("merge login failed: %v", err)
	}
	if merged.ID != res.User.ID {
		t.Fatalf("merge created a new user: %s vs %s", merged.ID, res.User.ID)
	}
	if len(store.auths) != 2 {
		t.Fatalf("expected LOCAL + GOOGLE links, got %d", len(store.auths))
	}

	// Second callback with the same subject adds nothing.
	again, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGoogle, ProviderID: "g1", DisplayName: "A", Email: "a@x.com",
	})
	if err != nil || again.ID != res.User.ID {
		t.Fatalf("repeat login failed: %v, user %+v", err, again)
	}
	if len(store.auths) != 2 {
		t.Fatalf("repeat login created extra links: %d", len(store.auths))
	}

	var linked int
	for _, e := range sink.events {
		if e.Type == ports.EventLinked {
			linked++
		}
	}
	if linked != 1 {
		t.Fatalf("expected one linked event, got %d", linked)
	}
}

// An established link is authoritative even when the profile's current
// email belongs to a different local account.
func TestValidateOAuthLogin_LinkBeatsEmail(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	first, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGithub, ProviderID: "gh9", DisplayName: "Old Name", Email: "old@x.com",
	})
	if err != nil {
		t.Fatalf("initial login failed: %v", err)
	}
	if _, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "new@x.com", Username: "other", Password: "Valid1!x"}); err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}

	resolved, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGithub, ProviderID: "gh9", DisplayName: "Old Name", Email: "new@x.com",
	})
	if err != nil {
		t.Fatalf("drifted-email login failed: %v", err)
	}
	if resolved.ID != first.ID {
		t.Fatalf("email drift re-bound the link: %s vs %s", resolved.ID, first.ID)
	}
	// Only the gh9 link and the second account's LOCAL link exist; the
	// drifted-email login wrote nothing.
	if len(store.auths) != 2 {
		t.Fatalf("unexpected link count: %d", len(store.auths))
	}
}

func TestValidateOAuthLogin_MissingEmail(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	_, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGithub, ProviderID: "gh1", DisplayName: "No Email",
	})
	if !errors.Is(err, domain.ErrProfileEmailMissing) {
		t.Fatalf("expected ErrProfileEmailMissing, got %v", err)
	}
	if len(store.users) != 0 || len(store.auths) != 0 {
		t.Fatalf("rejected profile still created rows")
	}
}

func TestValidateOAuthLogin_LinkRaceFallsBackToWinner(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store, nil)

	res, err := svc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	// Simulate a concurrent callback having inserted the link between
	// the lookup and the insert.
	store.auths[authKey(domain.ProviderGoogle, "g1")] = &domain.AuthIdentity{
		ID: "pre", UserID: res.User.ID, Provider: domain.ProviderGoogle, ProviderID: "g1",
	}

	user, err := svc.ValidateOAuthLogin(context.Background(), ports.ExternalIdentity{
		Provider: domain.ProviderGoogle, ProviderID: "g1", DisplayName: "A", Email: "a@x.com",
	})
	if err != nil {
		t.Fatalf("raced login failed: %v", err)
	}
	if user.ID != res.User.ID {
		t.Fatalf("race resolved to wrong user")
	}
}

func TestUserService_Reads(t *testing.T) {
	store := newStubStore()
	authSvc := newTestService(store, nil)
	userSvc := NewUserService(store)

	res, err := authSvc.SignUpLocal(context.Background(), ports.SignUpInput{Email: "a@x.com", Username: "alice", Password: "Valid1!x"})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}

	got, err := userSvc.GetByID(context.Background(), res.User.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("GetByID failed: %v %+v", err, got)
	}
	if _, err := userSvc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	users, err := userSvc.List(context.Background())
	if err != nil || len(users) != 1 {
		t.Fatalf("List failed: %v, %d users", err, len(users))
	}
}
