package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

// ErrUserNotFound is returned by lookups that match no row.
var ErrUserNotFound = errors.New("user not found")

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, password_hash, name, role, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// Create inserts a new user. A taken username maps to apperr.ErrDuplicateUser.
func (r *Repository) Create(ctx context.Context, q database.Querier, username, passwordHash, name string, role models.Role) (*models.User, error) {
	if q == nil {
		q = r.pool
	}
	const stmt = `INSERT INTO users (username, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	u, err := scanUser(q.QueryRow(ctx, stmt, username, passwordHash, name, string(role)))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}
