// Package registrations is the ledger of who attends which event. Every
// mutation keeps events.attendees equal to the number of registration rows.
package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/internal/notifications"
)

const notifyTimeout = 5 * time.Second

// Tx is the set of steps available inside one ledger transaction.
type Tx interface {
	// LockEvent reads the event and holds its row until the transaction ends.
	LockEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	Insert(ctx context.Context, userID, eventID uuid.UUID) error
	// Delete reports whether a registration was removed.
	Delete(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	AdjustAttendees(ctx context.Context, eventID uuid.UUID, delta int) error
	AppendNotification(ctx context.Context, userID uuid.UUID, message string) (*models.Notification, error)
}

// Store runs ledger transactions. InTx commits only when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListEventIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier hands a committed notification to realtime delivery.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Reconciler recomputes attendee counters from registrations.
type Reconciler interface {
	Reconcile(ctx context.Context) (int64, error)
}

// Service is the registration ledger.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates the ledger. notifier may be nil.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Join registers userID for eventID. The capacity check, the registration,
// the counter increment and the confirmation notification commit together.
func (s *Service) Join(ctx context.Context, eventID, userID uuid.UUID) error {
	var note *models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		e, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.IsFull() {
			return apperr.ErrCapacityExceeded
		}
		if err := tx.Insert(ctx, userID, eventID); err != nil {
			return err
		}
		if err := tx.AdjustAttendees(ctx, eventID, 1); err != nil {
			return err
		}
		note, err = tx.AppendNotification(ctx, userID, notifications.JoinMessage(e.Title))
		return err
	})
	if err != nil {
		return s.fail("join", eventID, userID, err)
	}
	metrics.LedgerOps.WithLabelValues("join", metrics.OutcomeOK).Inc()
	s.logger.Info("registered for event",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
	)
	s.deliver(ctx, note)
	return nil
}

// Leave cancels userID's registration for eventID.
func (s *Service) Leave(ctx context.Context, eventID, userID uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		removed, err := tx.Delete(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.ErrNotRegistered
		}
		return tx.AdjustAttendees(ctx, eventID, -1)
	})
	if err != nil {
		return s.fail("leave", eventID, userID, err)
	}
	metrics.LedgerOps.WithLabelValues("leave", metrics.OutcomeOK).Inc()
	s.logger.Info("registration cancelled",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// ListEventIDsForUser returns the events userID is registered for.
func (s *Service) ListEventIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.store.ListEventIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// Reconcile repairs attendee counters that drifted from the registrations,
// e.g. after rows were removed outside the ledger.
func (s *Service) Reconcile(ctx context.Context, r Reconciler) (int64, error) {
	n, err := r.Reconcile(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("attendee counters corrected", zap.Int64("events", n))
	}
	return n, nil
}

// fail classifies an error from a rolled-back unit. Client errors pass
// through; store failures become opaque transaction errors.
func (s *Service) fail(op string, eventID, userID uuid.UUID, err error) error {
	if apperr.IsClientError(err) {
		metrics.LedgerOps.WithLabelValues(op, metrics.OutcomeRejected).Inc()
		return err
	}
	metrics.LedgerOps.WithLabelValues(op, metrics.OutcomeError).Inc()
	metrics.TxRollbacks.WithLabelValues(op).Inc()
	s.logger.Error(op+" transaction rolled back",
		zap.Error(err),
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
	)
	return apperr.Transaction(op+" event", err)
}

// deliver is best effort: the notification is already committed and stays
// readable through the outbox even if realtime delivery fails.
func (s *Service) deliver(ctx context.Context, n *models.Notification) {
	if s.notifier == nil || n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, *n); err != nil {
		s.logger.Warn("enqueue notification failed",
			zap.Error(err),
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
		)
	}
}
