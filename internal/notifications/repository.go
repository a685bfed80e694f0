package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

// Repository handles notification persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts an unread notification using q, which is normally the
// caller's open transaction. A nil q runs against the pool.
func (r *Repository) Append(ctx context.Context, q database.Querier, userID uuid.UUID, message string) (*models.Notification, error) {
	if q == nil {
		q = r.pool
	}
	const stmt = `INSERT INTO notifications (user_id, message) VALUES ($1, $2)
		RETURNING id, user_id, message, read, created_at`
	var n models.Notification
	if err := q.QueryRow(ctx, stmt, userID, message).Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// ListForUser returns a user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	const q = `SELECT id, user_id, message, read, created_at FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead sets read = true. Unknown ids update nothing.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE notifications SET read = TRUE WHERE id = $1 AND read = FALSE`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
