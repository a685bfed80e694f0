package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/events"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

const registrationKey = "registrations_user_event_key"

// Appender writes a notification through the caller's transaction.
type Appender interface {
	Append(ctx context.Context, q database.Querier, userID uuid.UUID, message string) (*models.Notification, error)
}

// Repository handles registration persistence.
type Repository struct {
	pool  *pgxpool.Pool
	notes Appender
}

// NewRepository creates a registrations repository. notes receives the
// confirmation written by Join inside the same transaction.
func NewRepository(pool *pgxpool.Pool, notes Appender) *Repository {
	return &Repository{pool: pool, notes: notes}
}

// InTx runs fn in one database transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, notes: r.notes})
	})
}

// ListEventIDsByUser returns the ids of events userID is registered for.
func (r *Repository) ListEventIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT event_id FROM registrations WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reconcile rewrites every attendee counter that disagrees with the number
// of registrations and returns how many events were corrected.
func (r *Repository) Reconcile(ctx context.Context) (int64, error) {
	const q = `UPDATE events e SET attendees = c.n, updated_at = NOW()
		FROM (
			SELECT ev.id, COUNT(reg.id) AS n
			FROM events ev LEFT JOIN registrations reg ON reg.event_id = ev.id
			GROUP BY ev.id
		) c
		WHERE e.id = c.id AND e.attendees <> c.n`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("reconcile attendees: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgTx struct {
	tx    pgx.Tx
	notes Appender
}

func (t *pgTx) LockEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	e, err := events.ScanEvent(t.tx.QueryRow(ctx, events.SelectForUpdate, eventID))
	if err != nil {
		if errors.Is(err, apperr.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return e, nil
}

func (t *pgTx) Insert(ctx context.Context, userID, eventID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO registrations (user_id, event_id) VALUES ($1, $2)`, userID, eventID)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, registrationKey):
		return apperr.ErrDuplicateRegistration
	case database.IsForeignKeyViolation(err):
		return apperr.Validation("userId", "user does not exist")
	}
	return fmt.Errorf("insert registration: %w", err)
}

func (t *pgTx) Delete(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM registrations WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) AdjustAttendees(ctx context.Context, eventID uuid.UUID, delta int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE events SET attendees = attendees + $1 WHERE id = $2`, delta, eventID)
	if err != nil {
		return fmt.Errorf("adjust attendees: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrEventNotFound
	}
	return nil
}

func (t *pgTx) AppendNotification(ctx context.Context, userID uuid.UUID, message string) (*models.Notification, error) {
	return t.notes.Append(ctx, t.tx, userID, message)
}
