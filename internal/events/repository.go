package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, date, location, latitude, longitude,
	capacity, attendees, category, image, created_by, created_at, updated_at`

// ScanEvent reads one row selected with the canonical event column list.
func ScanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Latitude, &e.Longitude,
		&e.Capacity, &e.Attendees, &e.Category, &e.Image, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// SelectForUpdate is the row-locking read the registration ledger uses.
const SelectForUpdate = `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`

// Create inserts e, using e.ID when set.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `INSERT INTO events (id, title, description, date, location, latitude, longitude,
		capacity, attendees, category, image, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
		RETURNING ` + eventColumns
	created, err := ScanEvent(r.pool.QueryRow(ctx, q, e.ID, e.Title, e.Description, e.Date, e.Location,
		e.Latitude, e.Longitude, e.Capacity, e.Category, e.Image, e.CreatedBy))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperr.Validation("createdBy", "creator does not exist")
		}
		if database.IsCheckViolation(err) {
			return apperr.Validation("capacity", "capacity must not be negative")
		}
		return fmt.Errorf("insert event: %w", err)
	}
	*e = *created
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return ScanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns all events, most distant date first.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Event, 0)
	for rows.Next() {
		e, err := ScanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update replaces the descriptive fields of e.ID. Attendees and created_by are untouched.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, date = $3, location = $4,
		latitude = $5, longitude = $6, capacity = $7, category = $8, image = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING ` + eventColumns
	updated, err := ScanEvent(r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Date, e.Location,
		e.Latitude, e.Longitude, e.Capacity, e.Category, e.Image, e.ID))
	if err != nil {
		if errors.Is(err, apperr.ErrEventNotFound) {
			return err
		}
		if database.IsCheckViolation(err) {
			return apperr.Validation("capacity", "capacity must not be negative")
		}
		return fmt.Errorf("update event: %w", err)
	}
	*e = *updated
	return nil
}

// DeleteResult describes what a cascading delete removed.
type DeleteResult struct {
	Found         bool
	Registrations int64
	Image         *string
}

// DeleteCascade removes the event's registrations and then the event in one
// transaction. A missing event is reported through Found, not as an error.
func (r *Repository) DeleteCascade(ctx context.Context, id uuid.UUID) (DeleteResult, error) {
	var res DeleteResult
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM registrations WHERE event_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		res.Registrations = tag.RowsAffected()

		err = tx.QueryRow(ctx, `DELETE FROM events WHERE id = $1 RETURNING image`, id).Scan(&res.Image)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("delete event: %w", err)
		}
		res.Found = true
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}
