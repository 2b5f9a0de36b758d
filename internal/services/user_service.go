package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/storage"
)

var errBadCredentials = core.Errorf(core.ErrUnauthorized, "invalid username or password")

// AuthResult is returned by every operation that (re)authenticates a user.
type AuthResult struct {
	User  core.User
	Token string
}

// ProfileUpdate carries optional profile changes; nil fields stay untouched.
type ProfileUpdate struct {
	Username *string
	Password *string
}

type UserService struct {
	users  storage.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *log.Logger
	clock  Clock
}

func NewUserService(users storage.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.Discard()
	}
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentUser),
	}
}

func (s *UserService) authResult(u core.User) (AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: u, Token: token}, nil
}

// Register creates an account and logs it in.
func (s *UserService) Register(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, core.Errorf(core.ErrValidation, "username and password are required")
	}
	if err := core.ValidateUsername(username); err != nil {
		return AuthResult{}, err
	}
	if err := core.ValidatePassword(password); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	now := nowUTC(s.clock)
	u := core.User{ID: core.NewID(), Username: username, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return AuthResult{}, core.Errorf(core.ErrDuplicate, "username already exists")
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID, log.FieldUsername, u.Username)
	return s.authResult(u)
}

// Login checks credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, core.Errorf(core.ErrValidation, "username and password are required")
	}
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return AuthResult{}, errBadCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUsername, username)
		return AuthResult{}, errBadCredentials
	}
	return s.authResult(u)
}

func (s *UserService) Profile(ctx context.Context, userID string) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Errorf(core.ErrNotFound, "user not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// UpdateProfile applies upd and returns the user with a fresh token.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (AuthResult, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if err := core.ValidateUsername(name); err != nil {
			return AuthResult{}, err
		}
		u.Username = name
	}
	if upd.Password != nil {
		if err := core.ValidatePassword(*upd.Password); err != nil {
			return AuthResult{}, err
		}
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return AuthResult{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = nowUTC(s.clock)

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			return AuthResult{}, core.Errorf(core.ErrDuplicate, "username already exists")
		}
		return AuthResult{}, fmt.Errorf("update user: %w", err)
	}
	s.logger.InfoContext(ctx, "Profile updated", log.FieldUserID, u.ID)
	return s.authResult(u)
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
