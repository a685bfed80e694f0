package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

// Store is the persistence the outbox needs.
type Store interface {
	Append(ctx context.Context, q database.Querier, userID uuid.UUID, message string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// Service is the append-only notification outbox.
type Service struct {
	store Store
}

// NewService creates the outbox.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// JoinMessage is the confirmation sent when a user registers for an event.
func JoinMessage(eventTitle string) string {
	return fmt.Sprintf(`You have successfully registered for the event "%s"`, eventTitle)
}

// Append records a new unread message for userID inside q.
func (s *Service) Append(ctx context.Context, q database.Querier, userID uuid.UUID, message string) (*models.Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("message", "message is required")
	}
	return s.store.Append(ctx, q, userID, message)
}

// ListForUser returns all notifications for userID, most recent first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	list, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// MarkRead flips the read flag. It is idempotent and silent for unknown ids.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
