package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// SaveUser will save the user in the database.
func (p *PostgresDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser := p.toUserDB(user)
	if _, err := p.db.ModelContext(ctx, dbUser).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	user.CreatedAt = dbUser.CreatedAt
	return nil
}

// GetUser returns the user matching the query.
func (p *PostgresDB) GetUser(ctx context.Context, query ports.GetUserQuery) (*model.User, error) {
	dbUser := new(userDB)
	q := p.db.ModelContext(ctx, dbUser)
	switch {
	case query.ID != uuid.Nil:
		q = q.Where("id = ?", query.ID)
	case query.Email != "":
		q = q.Where("email = ?", query.Email)
	case query.Username != "":
		q = q.Where("username = ?", query.Username)
	default:
		return nil, errors.New("empty user query")
	}

	if err := q.Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting user: %w", err)
	}
	user := translateUserDBToModel(*dbUser)
	return &user, nil
}

// ListUsersByIDs returns the existing users among ids, in the order of ids.
func (p *PostgresDB) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	var dbUsers []userDB
	if err := p.db.ModelContext(ctx, &dbUsers).WhereIn("id IN (?)", ids).Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, fmt.Errorf("error selecting users: %w", err)
	}

	byID := make(map[uuid.UUID]userDB, len(dbUsers))
	for _, u := range dbUsers {
		byID[u.ID] = u
	}
	users := make([]model.User, 0, len(dbUsers))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, translateUserDBToModel(u))
		}
	}
	return users, nil
}

// UpdateUser will replace the profile fields of the user. It returns model.ErrNotFound if the input
// user does not exist.
func (p *PostgresDB) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}

	dbUser := p.toUserDB(user)
	res, err := p.db.ModelContext(ctx, dbUser).
		Column("username", "email", "name", "bio", "location", "profile_photo").
		WherePK().
		Update()
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the password hash of the user.
func (p *PostgresDB) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := p.db.ModelContext(ctx, (*userDB)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Update()
	if err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateOnlineStatus sets the online flag and the last-seen timestamp.
func (p *PostgresDB) UpdateOnlineStatus(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	res, err := p.db.ModelContext(ctx, (*userDB)(nil)).
		Set("is_online = ?", online).
		Set("last_seen = ?", lastSeen).
		Where("id = ?", id).
		Update()
	if err != nil {
		return fmt.Errorf("error updating online status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CountUsers counts registered users.
func (p *PostgresDB) CountUsers(ctx context.Context) (int, error) {
	count, err := p.db.ModelContext(ctx, (*userDB)(nil)).Count()
	if err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return count, nil
}

func (p *PostgresDB) toUserDB(user *model.User) *userDB {
	dbUser := &userDB{
		ID:           user.ID,
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
	if dbUser.ID == uuid.Nil {
		dbUser.ID = uuid.New()
		user.ID = dbUser.ID
	}
	if dbUser.CreatedAt.IsZero() {
		dbUser.CreatedAt = p.nowFunc()
	}
	if dbUser.LastSeen.IsZero() {
		dbUser.LastSeen = dbUser.CreatedAt
	}
	return dbUser
}

func translateUserDBToModel(dbUser userDB) model.User {
	return model.User{
		ID:           dbUser.ID,
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
	}
}

type userDB struct {
	tableName struct{} `pg:"gatherly.users"`

	// ID unique identifier of the user.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	// Username is the unique handle of the user.
	Username string `pg:"username"`

	// Email is the unique email of the user.
	Email string `pg:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `pg:"password_hash"`

	// Name is the display name.
	Name string `pg:"name"`

	Bio          string `pg:"bio,use_zero"`
	Location     string `pg:"location,use_zero"`
	ProfilePhoto string `pg:"profile_photo,use_zero"`

	// IsOnline tells whether the user is logged in.
	IsOnline bool `pg:"is_online,use_zero"`

	// LastSeen is the last time the online flag changed.
	LastSeen time.Time `pg:"last_seen"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `pg:"created_at"`
}
