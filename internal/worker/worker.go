// Package worker moves committed notifications from the delivery queue to
// the per-user realtime channels.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/internal/realtime"
	"github.com/eventia/backend/pkg/queue"
)

const pollTimeout = 5 * time.Second

// Delivery outcomes recorded in metrics.NotificationsDispatched.
const (
	StatusDelivered  = "delivered"
	StatusNoListener = "no_listener"
	StatusRetried    = "retried"
	StatusDead       = "dead"
	StatusInvalid    = "invalid"
)

// JobSource is the queue the dispatcher consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// NotificationDispatcher publishes notification jobs to realtime subscribers.
type NotificationDispatcher struct {
	jobs    JobSource
	pub     realtime.Publisher
	logger  *zap.Logger
	backoff time.Duration
}

// NewNotificationDispatcher creates a dispatcher.
func NewNotificationDispatcher(jobs JobSource, pub realtime.Publisher, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{jobs: jobs, pub: pub, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one notification job.
func (d *NotificationDispatcher) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return errors.New("notification job without user")
	}

	data, err := json.Marshal(payload.Notification())
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	receivers, err := d.pub.PublishUserEvent(ctx, payload.UserID, realtime.EventNotification, data)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	status := StatusDelivered
	if receivers == 0 {
		status = StatusNoListener
	}
	metrics.NotificationsDispatched.WithLabelValues(status).Inc()
	d.logger.Debug("notification dispatched",
		zap.String("notification_id", payload.NotificationID.String()),
		zap.String("user_id", payload.UserID.String()),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns
// when ctx is cancelled.
func (d *NotificationDispatcher) Run(ctx context.Context) error {
	d.logger.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping")
			return nil
		default:
		}

		job, err := d.jobs.Dequeue(ctx, pollTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrInvalidJob) {
				metrics.NotificationsDispatched.WithLabelValues(StatusInvalid).Inc()
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			d.logger.Warn("dequeue error", zap.Error(err))
			d.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		if err := d.Process(ctx, job); err != nil {
			d.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			dead, reErr := d.jobs.Retry(ctx, job)
			switch {
			case reErr != nil:
				d.logger.Error("retry enqueue failed", zap.Error(reErr), zap.String("job_id", job.ID))
			case dead:
				metrics.NotificationsDispatched.WithLabelValues(StatusDead).Inc()
			default:
				metrics.NotificationsDispatched.WithLabelValues(StatusRetried).Inc()
			}
			d.sleep(ctx)
		}
	}
}

func (d *NotificationDispatcher) sleep(ctx context.Context) {
	t := time.NewTimer(d.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
