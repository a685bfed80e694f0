// Package dbtest starts one migrated PostgreSQL container per test binary.
// Tests are skipped under -short or when no container runtime is available.
package dbtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/eventia/backend/pkg/database"
)

var (
	once    sync.Once
	initErr error
	pool    *pgxpool.Pool
)

// Pool returns a pool on an empty, migrated database.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	once.Do(start)
	if initErr != nil {
		t.Skipf("postgres container unavailable: %v", initErr)
	}
	Reset(t, pool)
	return pool
}

func start() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("eventia"),
		postgres.WithUsername("eventia"),
		postgres.WithPassword("eventia"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		initErr = err
		return
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		initErr = err
		return
	}
	p, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	if err != nil {
		initErr = err
		return
	}
	if err := database.Migrate(ctx, p, zap.NewNop()); err != nil {
		p.Close()
		initErr = err
		return
	}
	pool = p
}

// Reset empties every table.
func Reset(t *testing.T, p *pgxpool.Pool) {
	t.Helper()
	_, err := p.Exec(context.Background(), `TRUNCATE notifications, registrations, events, users CASCADE`)
	require.NoError(t, err)
}

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, p *pgxpool.Pool, username string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := p.QueryRow(context.Background(),
		`INSERT INTO users (username, password_hash, name) VALUES ($1, 'x', $1) RETURNING id`, username,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// InsertEvent creates an event row with zero attendees and returns its id.
func InsertEvent(t *testing.T, p *pgxpool.Pool, title string, capacity int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := p.QueryRow(context.Background(),
		`INSERT INTO events (title, date, capacity) VALUES ($1, NOW(), $2) RETURNING id`, title, capacity,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Attendees returns the stored counter and the actual registration count.
func Attendees(t *testing.T, p *pgxpool.Pool, eventID uuid.UUID) (counter, registrations int) {
	t.Helper()
	err := p.QueryRow(context.Background(),
		`SELECT e.attendees, (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id)
		 FROM events e WHERE e.id = $1`, eventID,
	).Scan(&counter, &registrations)
	require.NoError(t, err)
	return counter, registrations
}
