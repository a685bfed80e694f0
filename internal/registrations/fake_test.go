package registrations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
)

type regKey struct{ user, event uuid.UUID }

type ledgerState struct {
	events        map[uuid.UUID]models.Event
	registrations map[regKey]bool
	notifications []models.Notification
}

func (s ledgerState) clone() ledgerState {
	c := ledgerState{
		events:        make(map[uuid.UUID]models.Event, len(s.events)),
		registrations: make(map[regKey]bool, len(s.registrations)),
		notifications: append([]models.Notification(nil), s.notifications...),
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	return c
}

// memLedger is a transactional in-memory Store. Transactions are serialized
// and roll back to a snapshot when fn fails.
type memLedger struct {
	mu     sync.Mutex
	state  ledgerState
	users  map[uuid.UUID]bool
	failAt string
}

var errInjected = errors.New("injected store failure")

func newMemLedger() *memLedger {
	return &memLedger{
		state: ledgerState{events: map[uuid.UUID]models.Event{}, registrations: map[regKey]bool{}},
		users: map[uuid.UUID]bool{},
	}
}

func (m *memLedger) addUser() uuid.UUID {
	id := uuid.New()
	m.users[id] = true
	return id
}

func (m *memLedger) addEvent(title string, capacity int) uuid.UUID {
	id := uuid.New()
	m.state.events[id] = models.Event{ID: id, Title: title, Capacity: capacity, Category: models.DefaultCategory}
	return id
}

func (m *memLedger) event(id uuid.UUID) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.events[id]
}

func (m *memLedger) registrationCount(eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.state.registrations {
		if k.event == eventID {
			n++
		}
	}
	return n
}

func (m *memLedger) notificationsFor(userID uuid.UUID) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.state.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memLedger) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(ctx, &memTx{m: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memLedger) ListEventIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for k := range m.state.registrations {
		if k.user == userID {
			ids = append(ids, k.event)
		}
	}
	return ids, nil
}

type memTx struct{ m *memLedger }

func (t *memTx) step(name string) error {
	if t.m.failAt == name {
		return errInjected
	}
	return nil
}

func (t *memTx) LockEvent(_ context.Context, eventID uuid.UUID) (*models.Event, error) {
	if err := t.step("lock"); err != nil {
		return nil, err
	}
	e, ok := t.m.state.events[eventID]
	if !ok {
		return nil, apperr.ErrEventNotFound
	}
	return &e, nil
}

func (t *memTx) Insert(_ context.Context, userID, eventID uuid.UUID) error {
	if err := t.step("insert"); err != nil {
		return err
	}
	if !t.m.users[userID] {
		return apperr.Validation("userId", "user does not exist")
	}
	k := regKey{userID, eventID}
	if t.m.state.registrations[k] {
		return apperr.ErrDuplicateRegistration
	}
	t.m.state.registrations[k] = true
	return nil
}

func (t *memTx) Delete(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	if err := t.step("delete"); err != nil {
		return false, err
	}
	k := regKey{userID, eventID}
	if !t.m.state.registrations[k] {
		return false, nil
	}
	delete(t.m.state.registrations, k)
	return true, nil
}

func (t *memTx) AdjustAttendees(_ context.Context, eventID uuid.UUID, delta int) error {
	if err := t.step("adjust"); err != nil {
		return err
	}
	e, ok := t.m.state.events[eventID]
	if !ok {
		return apperr.ErrEventNotFound
	}
	e.Attendees += delta
	t.m.state.events[eventID] = e
	return nil
}

func (t *memTx) AppendNotification(_ context.Context, userID uuid.UUID, message string) (*models.Notification, error) {
	if err := t.step("notify"); err != nil {
		return nil, err
	}
	n := models.Notification{ID: uuid.New(), UserID: userID, Message: message, CreatedAt: time.Now()}
	t.m.state.notifications = append(t.m.state.notifications, n)
	return &n, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

type fixedReconciler struct {
	n   int64
	err error
}

func (f fixedReconciler) Reconcile(context.Context) (int64, error) { return f.n, f.err }
