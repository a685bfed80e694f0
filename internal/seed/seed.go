// Package seed bootstraps sample accounts and events on an empty database.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/auth"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

// advisoryLockKey serializes concurrent seeders across instances.
const advisoryLockKey = 7_301_442

// Account is a seeded login.
type Account struct {
	Username string
	Password string
	Name     string
	Role     models.Role
}

// SampleEvent is a seeded event, owned by the account at Owner.
type SampleEvent struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Capacity    int
	Category    string
	Owner       int
}

// DefaultAccounts are created when no admin account exists.
var DefaultAccounts = []Account{
	{Username: "admin", Password: "admin123", Name: "Administrator", Role: models.RoleAdmin},
	{Username: "user", Password: "user123", Name: "Regular User", Role: models.RoleUser},
}

// DefaultEvents start without attendees so the counter matches the empty
// registrations table.
var DefaultEvents = []SampleEvent{
	{
		Title:       "Tech Conference 2024",
		Description: "Conference about technology",
		Date:        time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
		Location:    "Convention Center",
		Capacity:    200,
		Category:    "Technology",
		Owner:       0,
	},
	{
		Title:       "React Workshop",
		Description: "Hands-on React workshop",
		Date:        time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
		Location:    "Room 101",
		Capacity:    30,
		Category:    "Workshop",
		Owner:       1,
	},
}

// Seeder writes the bootstrap data.
type Seeder struct {
	pool   *pgxpool.Pool
	users  *auth.Service
	logger *zap.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(pool *pgxpool.Pool, users *auth.Service, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{pool: pool, users: users, logger: logger}
}

// Run seeds accounts and events in one transaction unless the first account
// already exists. It reports whether anything was written.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	seeded := false
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
			return fmt.Errorf("seed lock: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, DefaultAccounts[0].Username).Scan(&exists); err != nil {
			return fmt.Errorf("check seed: %w", err)
		}
		if exists {
			return nil
		}

		ids := make([]uuid.UUID, len(DefaultAccounts))
		for i, a := range DefaultAccounts {
			u, err := s.users.CreateWithRole(ctx, tx, a.Username, a.Password, a.Name, a.Role)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", a.Username, err)
			}
			ids[i] = u.ID
		}
		const q = `INSERT INTO events (title, description, date, location, capacity, attendees, category, created_by)
			VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`
		for _, e := range DefaultEvents {
			if _, err := tx.Exec(ctx, q, e.Title, e.Description, e.Date, e.Location, e.Capacity, e.Category, ids[e.Owner]); err != nil {
				return fmt.Errorf("seed event %q: %w", e.Title, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("sample users and events created",
			zap.Int("users", len(DefaultAccounts)),
			zap.Int("events", len(DefaultEvents)),
		)
	}
	return seeded, nil
}
