package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

type memStore struct {
	mu    sync.Mutex
	notes []models.Notification
	clock time.Time
	fail  error
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) Append(_ context.Context, _ database.Querier, userID uuid.UUID, message string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	n := models.Notification{ID: uuid.New(), UserID: userID, Message: message, CreatedAt: m.clock}
	m.notes = append(m.notes, n)
	return &n, nil
}

func (m *memStore) ListForUser(_ context.Context, userID uuid.UUID) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []models.Notification
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for i := range m.notes {
		if m.notes[i].ID == id {
			m.notes[i].Read = true
		}
	}
	return nil
}

var errStore = errors.New("store unavailable")
