package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
	"github.com/eventia/backend/pkg/utils"
)

// MinPasswordLength is the shortest password Register accepts, in characters.
const MinPasswordLength = 6

// Store is the user persistence the identity gate needs.
type Store interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, q database.Querier, username, passwordHash, name string, role models.Role) (*models.User, error)
}

// Hasher is the opaque one-way credential primitive.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(plain, hashed string) bool
}

// Service verifies credentials and creates accounts. Password hashes never
// leave it: every user it returns is a models.UserPublic.
type Service struct {
	store  Store
	hasher Hasher
}

// NewService creates the identity gate. A nil hasher uses bcrypt defaults.
func NewService(store Store, hasher Hasher) *Service {
	if hasher == nil {
		hasher = utils.DefaultHasher
	}
	return &Service{store: store, hasher: hasher}
}

// Authenticate checks username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.UserPublic, error) {
	u, err := s.store.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, apperr.ErrInvalidCredential
	}
	pub := u.ToPublic()
	return &pub, nil
}

// Register creates a user with role "user".
func (s *Service) Register(ctx context.Context, username, password, name string) (*models.UserPublic, error) {
	return s.create(ctx, nil, username, password, name, models.RoleUser)
}

// CreateWithRole is Register for bootstrap code that needs admins. q may be an open transaction.
func (s *Service) CreateWithRole(ctx context.Context, q database.Querier, username, password, name string, role models.Role) (*models.UserPublic, error) {
	return s.create(ctx, q, username, password, name, role)
}

func (s *Service) create(ctx context.Context, q database.Querier, username, password, name string, role models.Role) (*models.UserPublic, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || password == "" || name == "" {
		return nil, apperr.Validation(apperr.FieldGeneral, "all fields are required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperr.Validation("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	_, err := s.store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperr.ErrDuplicateUser
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, apperr.Validation("password", "password is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, q, username, hash, name, role)
	if err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}
