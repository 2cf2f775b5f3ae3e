package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brightpath/accounts-api/internal/core/domain"
)

const (
	userCollection = "users"
	authCollection = "auth_identities"
)

// AccountStore persists users and identity links in MongoDB. IDs are
// assigned by the service layer, so documents use them directly as _id
// and no fetch-back after insert is needed.
type AccountStore struct {
	db *mongo.Database
}

func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{db: db}
}

type userDoc struct {
	ID          string `bson:"_id"`
	Email       string `bson:"email"`
	Username    string `bson:"username"`
	DisplayName string `bson:"display_name,omitempty"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
}

type authDoc struct {
	ID           string `bson:"_id"`
	UserID       string `bson:"user_id"`
	Provider     string `bson:"provider"`
	ProviderID   string `bson:"provider_id"`
	PasswordHash string `bson:"password_hash,omitempty"`
	CreatedAt    int64  `bson:"created_at"`
}

// EnsureIndexes creates the unique indexes the service's correctness
// depends on: user email, user username and the (provider, provider_id)
// pair. Safe to run on every startup.
func (s *AccountStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.db.Collection(userCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.db.Collection(authCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("create auth indexes: %w", err)
	}
	return nil
}

func (s *AccountStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *AccountStore) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *AccountStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *AccountStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	cur, err := s.db.Collection(userCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []domain.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, *doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountStore) FindAuthWithUser(ctx context.Context, provider domain.Provider, providerID string) (*domain.AuthIdentity, *domain.User, error) {
	var ad authDoc
	err := s.db.Collection(authCollection).
		FindOne(ctx, bson.M{"provider": string(provider), "provider_id": providerID}).
		Decode(&ad)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("find auth: %w", err)
	}

	user, err := s.FindUserByID(ctx, ad.UserID)
	if err != nil {
		return nil, nil, err
	}
	return ad.toDomain(), user, nil
}

// CreateUserAndAuth inserts the user and its first identity link inside
// one session transaction, so a crash between the two writes can never
// leave an orphan user with no way to authenticate.
func (s *AccountStore) CreateUserAndAuth(ctx context.Context, user *domain.User, auth *domain.AuthIdentity) (*domain.User, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.db.Collection(userCollection).InsertOne(sc, fromUser(user)); err != nil {
			return nil, err
		}
		if _, err := s.db.Collection(authCollection).InsertOne(sc, fromAuth(auth)); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, mapDuplicateKey(err)
		}
		return nil, fmt.Errorf("create user and auth: %w", err)
	}
	return user, nil
}

func (s *AccountStore) CreateAuthForUser(ctx context.Context, auth *domain.AuthIdentity) error {
	if _, err := s.db.Collection(authCollection).InsertOne(ctx, fromAuth(auth)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("create auth: %w", err)
	}
	return nil
}

func (s *AccountStore) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.db.Collection(userCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// mapDuplicateKey translates a unique-index violation into the domain
// conflict the offending index stands for. The index name is the only
// discriminator Mongo reports.
func mapDuplicateKey(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email_1"):
		return domain.ErrEmailTaken
	case strings.Contains(msg, "username_1"):
		return domain.ErrUsernameTaken
	default:
		return domain.ErrIdentityExists
	}
}

func fromUser(u *domain.User) userDoc {
	return userDoc{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt.Unix(),
		UpdatedAt:   u.UpdatedAt.Unix(),
	}
}

func fromAuth(a *domain.AuthIdentity) authDoc {
	return authDoc{
		ID:           a.ID,
		UserID:       a.UserID,
		Provider:     string(a.Provider),
		ProviderID:   a.ProviderID,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt.Unix(),
	}
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:          d.ID,
		Email:       d.Email,
		Username:    d.Username,
		DisplayName: d.DisplayName,
		CreatedAt:   unixToTime(d.CreatedAt),
		UpdatedAt:   unixToTime(d.UpdatedAt),
	}
}

func (d authDoc) toDomain() *domain.AuthIdentity {
	return &domain.AuthIdentity{
		ID:           d.ID,
		UserID:       d.UserID,
		Provider:     domain.Provider(d.Provider),
		ProviderID:   d.ProviderID,
		PasswordHash: d.PasswordHash,
		CreatedAt:    unixToTime(d.CreatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
