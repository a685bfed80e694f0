package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/database"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*models.User)}
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, _ database.Querier, username, hash, name string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return nil, apperr.ErrDuplicateUser
	}
	u := &models.User{ID: uuid.New(), Username: username, PasswordHash: hash, Name: name, Role: role, CreatedAt: time.Now()}
	m.users[username] = u
	cp := *u
	return &cp, nil
}
