package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB is a mongo adapter for the identity store.
type MongoDB struct {
	userCollection *mongo.Collection
	nowFunc        func() time.Time
}

var (
	_ ports.UserRepository = (*MongoDB)(nil)
	_ ports.Pinger         = (*MongoDB)(nil)
)

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// UserCollection is a mongo collection
	UserCollection *mongo.Collection
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(p *MongoDB) {
		p.nowFunc = nowFunc
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	if args.UserCollection == nil {
		return nil, errors.New("nil user collection")
	}
	m := &MongoDB{userCollection: args.UserCollection, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

// EnsureIndexes creates the unique indexes on email and username. It is idempotent.
func (p *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := p.userCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
	})
	if err != nil {
		return fmt.Errorf("error creating user indexes: %w", err)
	}
	return nil
}

// Ping checks the primary is reachable.
func (p *MongoDB) Ping(ctx context.Context) error {
	return p.userCollection.Database().Client().Ping(ctx, readpref.Primary())
}

// SaveUser will save the user in the database.
func (p *MongoDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser := p.toDBModel(user)
	if _, err := p.userCollection.InsertOne(ctx, dbUser); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	user.ID = uuid.MustParse(dbUser.ID)
	user.CreatedAt = dbUser.CreatedAt
	return nil
}

// GetUser returns the user matching the query.
func (p *MongoDB) GetUser(ctx context.Context, query ports.GetUserQuery) (*model.User, error) {
	var filter bson.D
	switch {
	case query.ID != uuid.Nil:
		filter = bson.D{{Key: "_id", Value: query.ID.String()}}
	case query.Email != "":
		filter = bson.D{{Key: "email", Value: query.Email}}
	case query.Username != "":
		filter = bson.D{{Key: "username", Value: query.Username}}
	default:
		return nil, errors.New("empty user query")
	}

	dbUser := new(userDB)
	if err := p.userCollection.FindOne(ctx, filter).Decode(dbUser); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	user, err := translateDBToModel(*dbUser)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsersByIDs returns the existing users among ids, in the order of ids.
func (p *MongoDB) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	cursor, err := p.userCollection.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	var dbUsers []userDB
	if err := cursor.All(ctx, &dbUsers); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}

	byID := make(map[string]userDB, len(dbUsers))
	for _, u := range dbUsers {
		byID[u.ID] = u
	}
	users := make([]model.User, 0, len(dbUsers))
	for _, key := range keys {
		dbUser, ok := byID[key]
		if !ok {
			continue
		}
		user, err := translateDBToModel(dbUser)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateUser will replace the profile fields of the user. It returns model.ErrNotFound if the input
// user does not exist.
func (p *MongoDB) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: user.Username},
		{Key: "email", Value: user.Email},
		{Key: "name", Value: user.Name},
		{Key: "bio", Value: user.Bio},
		{Key: "location", Value: user.Location},
		{Key: "profile_photo", Value: user.ProfilePhoto},
	}}}
	return p.updateByID(ctx, user.ID, update)
}

// UpdatePassword replaces the password hash of the user.
func (p *MongoDB) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return p.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "password_hash", Value: passwordHash}}}})
}

// UpdateOnlineStatus sets the online flag and the last-seen timestamp.
func (p *MongoDB) UpdateOnlineStatus(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	return p.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_online", Value: online},
		{Key: "last_seen", Value: lastSeen},
	}}})
}

// CountUsers counts registered users.
func (p *MongoDB) CountUsers(ctx context.Context) (int, error) {
	count, err := p.userCollection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return int(count), nil
}

func (p *MongoDB) updateByID(ctx context.Context, id uuid.UUID, update bson.D) error {
	res, err := p.userCollection.UpdateByID(ctx, id.String(), update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	// MatchedCount: an update writing identical values modifies nothing but still matched.
	if res.MatchedCount < 1 {
		return model.ErrNotFound
	}
	return nil
}

func (p *MongoDB) toDBModel(user *model.User) *userDB {
	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	dbUser := &userDB{
		ID:           id.String(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		Bio:          user.Bio,
		Location:     user.Location,
		ProfilePhoto: user.ProfilePhoto,
		IsOnline:     user.IsOnline,
		LastSeen:     user.LastSeen,
		CreatedAt:    user.CreatedAt,
	}
	if dbUser.CreatedAt.IsZero() {
		dbUser.CreatedAt = p.nowFunc()
	}
	if dbUser.LastSeen.IsZero() {
		dbUser.LastSeen = dbUser.CreatedAt
	}
	return dbUser
}

func translateDBToModel(dbUser userDB) (model.User, error) {
	id, err := uuid.Parse(dbUser.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("error parsing user id %q: %w", dbUser.ID, err)
	}
	return model.User{
		ID:           id,
		Username:     dbUser.Username,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		Name:         dbUser.Name,
		Bio:          dbUser.Bio,
		Location:     dbUser.Location,
		ProfilePhoto: dbUser.ProfilePhoto,
		IsOnline:     dbUser.IsOnline,
		LastSeen:     dbUser.LastSeen.UTC(),
		CreatedAt:    dbUser.CreatedAt.UTC(),
	}, nil
}

type userDB struct {
	// ID unique identifier of the user, the canonical uuid string.
	ID string `bson:"_id"`

	// Username is the unique handle of the user.
	Username string `bson:"username"`

	// Email is the unique email of the user.
	Email string `bson:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `bson:"password_hash"`

	// Name is the display name.
	Name string `bson:"name"`

	Bio          string `bson:"bio,omitempty"`
	Location     string `bson:"location,omitempty"`
	ProfilePhoto string `bson:"profile_photo,omitempty"`

	// IsOnline tells whether the user is logged in.
	IsOnline bool `bson:"is_online"`

	// LastSeen is the last time the online flag changed.
	LastSeen time.Time `bson:"last_seen"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `bson:"created_at"`
}
