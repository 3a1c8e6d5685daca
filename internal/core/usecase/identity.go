package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

var (
	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", model.ErrConflict)

	// ErrUsernameTaken is returned when registering with a username already in use.
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", model.ErrConflict)
)

// IdentityServiceArgs contains the mandatory arguments for the IdentityService.
type IdentityServiceArgs struct {
	// Users is the identity repository.
	Users ports.UserRepository

	// Tokens issues and verifies session tokens.
	Tokens ports.TokenIssuer

	// HashParams are the argon2id parameters. Optional, defaults to argon2id.DefaultParams.
	HashParams *argon2id.Params

	// NowFunc overrides the clock. Optional.
	NowFunc func() time.Time
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(args IdentityServiceArgs) *IdentityService {
	nowFunc := args.NowFunc
	if nowFunc == nil {
		nowFunc = func() time.Time { return time.Now().UTC() }
	}
	params := args.HashParams
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &IdentityService{users: args.Users, tokens: args.Tokens, hashParams: params, nowFunc: nowFunc}
}

// IdentityService gathers the functionality around the user-lifecycle and sessions.
type IdentityService struct {
	users      ports.UserRepository
	tokens     ports.TokenIssuer
	hashParams *argon2id.Params
	nowFunc    func() time.Time
}

// Register creates a user and opens a session for it.
func (s *IdentityService) Register(ctx context.Context, args model.RegisterArgs) (*model.AuthResponse, error) {
	args.Username = strings.TrimSpace(args.Username)
	args.Email = normalizeEmail(args.Email)
	args.Name = strings.TrimSpace(args.Name)
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, uuid.Nil, args.Email, args.Username); err != nil {
		return nil, err
	}

	// CreateHash returns a Argon2id hash of a plain-text password following the format used by the
	// Argon2 reference C implementation: $argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$RdescudvJCsgt3ub+b+dWRWJTmaaJObG
	hash, err := argon2id.CreateHash(args.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("error creating password hash: %w", err)
	}

	now := s.nowFunc()
	user := &model.User{
		ID:           uuid.New(),
		Username:     args.Username,
		Email:        args.Email,
		PasswordHash: hash,
		Name:         args.Name,
		Bio:          strings.TrimSpace(args.Bio),
		Location:     strings.TrimSpace(args.Location),
		ProfilePhoto: strings.TrimSpace(args.ProfilePhoto),
		IsOnline:     true,
		LastSeen:     now,
		CreatedAt:    now,
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	return s.openSession(*user)
}

// Login verifies the credentials, marks the user online and opens a session. It returns
// model.ErrInvalidCredentials if the email is unknown or the password does not match.
func (s *IdentityService) Login(ctx context.Context, args model.LoginArgs) (*model.AuthResponse, error) {
	args.Email = normalizeEmail(args.Email)
	if err := validateArgs(args); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, ports.GetUserQuery{Email: args.Email})
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if err := s.verifyPassword(args.Password, user.PasswordHash); err != nil {
		return nil, err
	}

	now := s.nowFunc()
	if err := s.users.UpdateOnlineStatus(ctx, user.ID, true, now); err != nil {
		return nil, fmt.Errorf("error updating online status: %w", err)
	}
	user.IsOnline = true
	user.LastSeen = now

	return s.openSession(*user)
}

// Logout marks the user offline.
func (s *IdentityService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.UpdateOnlineStatus(ctx, userID, false, s.nowFunc()); err != nil {
		return fmt.Errorf("error updating online status: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token into the id of its user. It returns model.ErrUnauthenticated
// if the token cannot be trusted.
func (s *IdentityService) Authenticate(token string) (uuid.UUID, error) {
	return s.tokens.Verify(token)
}

// GetProfile returns the public profile of the user.
func (s *IdentityService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error) {
	user, err := s.users.GetUser(ctx, ports.GetUserQuery{ID: userID})
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateProfile updates the profile fields of the user. The password is changed through ChangePassword.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID uuid.UUID, args model.UpdateProfileArgs) (*model.UserProfile, error) {
	args.Username = trimPtr(args.Username)
	args.Name = trimPtr(args.Name)
	if args.Email != nil {
		email := normalizeEmail(*args.Email)
		args.Email = &email
	}
	if err := validateArgs(args); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, ports.GetUserQuery{ID: userID})
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	var email, username string
	if args.Email != nil && *args.Email != user.Email {
		email = *args.Email
	}
	if args.Username != nil && *args.Username != user.Username {
		username = *args.Username
	}
	if err := s.ensureAvailable(ctx, user.ID, email, username); err != nil {
		return nil, err
	}

	if args.Username != nil {
		user.Username = *args.Username
	}
	if args.Email != nil {
		user.Email = *args.Email
	}
	if args.Name != nil {
		user.Name = *args.Name
	}
	if args.Bio != nil {
		user.Bio = strings.TrimSpace(*args.Bio)
	}
	if args.Location != nil {
		user.Location = strings.TrimSpace(*args.Location)
	}
	if args.ProfilePhoto != nil {
		user.ProfilePhoto = strings.TrimSpace(*args.ProfilePhoto)
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// ChangePassword replaces the password of the user once the current one is verified. It returns
// model.ErrInvalidCredentials if the current password does not match.
func (s *IdentityService) ChangePassword(ctx context.Context, userID uuid.UUID, args model.ChangePasswordArgs) error {
	if err := validateArgs(args); err != nil {
		return err
	}
	user, err := s.users.GetUser(ctx, ports.GetUserQuery{ID: userID})
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if err := s.verifyPassword(args.CurrentPassword, user.PasswordHash); err != nil {
		return err
	}

	hash, err := argon2id.CreateHash(args.NewPassword, s.hashParams)
	if err != nil {
		return fmt.Errorf("error creating password hash: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

func (s *IdentityService) verifyPassword(password, hash string) error {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return fmt.Errorf("error comparing password hash: %w", err)
	}
	if !match {
		return model.ErrInvalidCredentials
	}
	return nil
}

// ensureAvailable checks that email and username (when not empty) are not used by another user.
// The repositories enforce the same constraint; the check only produces a precise error.
func (s *IdentityService) ensureAvailable(ctx context.Context, self uuid.UUID, email, username string) error {
	checks := []struct {
		query ports.GetUserQuery
		err   error
	}{
		{query: ports.GetUserQuery{Email: email}, err: ErrEmailTaken},
		{query: ports.GetUserQuery{Username: username}, err: ErrUsernameTaken},
	}
	for _, check := range checks {
		if check.query.Email == "" && check.query.Username == "" {
			continue
		}
		existing, err := s.users.GetUser(ctx, check.query)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("error checking user uniqueness: %w", err)
		}
		if existing.ID != self {
			return check.err
		}
	}
	return nil
}

func (s *IdentityService) openSession(user model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &model.AuthResponse{User: user.Profile(), Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
