package events

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
)

type memStore struct {
	mu            sync.Mutex
	events        map[uuid.UUID]models.Event
	registrations map[uuid.UUID]int64
	failDelete    error
}

func newMemStore() *memStore {
	return &memStore{events: map[uuid.UUID]models.Event{}, registrations: map[uuid.UUID]int64{}}
}

func (m *memStore) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	e.Attendees = 0
	e.CreatedAt, e.UpdatedAt = now, now
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, apperr.ErrEventNotFound
	}
	return &e, nil
}

func (m *memStore) List(context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Event
	for _, e := range m.events {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list, nil
}

func (m *memStore) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[e.ID]
	if !ok {
		return apperr.ErrEventNotFound
	}
	e.Attendees = cur.Attendees
	e.CreatedBy = cur.CreatedBy
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = time.Now()
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) DeleteCascade(_ context.Context, id uuid.UUID) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return DeleteResult{}, m.failDelete
	}
	e, ok := m.events[id]
	if !ok {
		return DeleteResult{}, nil
	}
	res := DeleteResult{Found: true, Registrations: m.registrations[id], Image: e.Image}
	delete(m.events, id)
	delete(m.registrations, id)
	return res, nil
}

type memImages struct {
	mu      sync.Mutex
	objects map[string]bool
	failPut error
}

func newMemImages() *memImages { return &memImages{objects: map[string]bool{}} }

func (m *memImages) Offload(_ context.Context, id uuid.UUID, image string) (string, error) {
	if !strings.HasPrefix(image, "data:") {
		return image, nil
	}
	if m.failPut != nil {
		return "", m.failPut
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "https://images.test/events/" + id.String() + "/" + uuid.NewString()
	m.objects[url] = true
	return url, nil
}

func (m *memImages) Remove(_ context.Context, image string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.objects[image] {
		return errors.New("no such object")
	}
	delete(m.objects, image)
	return nil
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
