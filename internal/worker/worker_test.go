package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/pkg/queue"
)

type published struct {
	userID uuid.UUID
	event  string
	data   []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	sent      []published
	failFirst int
	receivers int64
}

func (p *fakePublisher) PublishUserEvent(_ context.Context, userID uuid.UUID, event string, data []byte) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFirst > 0 {
		p.failFirst--
		return 0, errors.New("redis unavailable")
	}
	p.sent = append(p.sent, published{userID, event, data})
	return p.receivers, nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fakeSource struct {
	jobs    chan *queue.Job
	mu      sync.Mutex
	retried []int
}

func (s *fakeSource) Dequeue(ctx context.Context, _ time.Duration) (*queue.Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case j := <-s.jobs:
		return j, nil
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (s *fakeSource) Retry(_ context.Context, job *queue.Job) (bool, error) {
	job.Attempt++
	s.mu.Lock()
	s.retried = append(s.retried, job.Attempt)
	s.mu.Unlock()
	if job.Attempt >= queue.MaxRetries {
		return true, nil
	}
	s.jobs <- job
	return false, nil
}

func notificationJob(t *testing.T, userID uuid.UUID) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.NotificationPayload{NotificationID: uuid.New(), UserID: userID, Message: "joined"})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeNotification, Payload: body}
}

func TestProcessPublishesToUserChannel(t *testing.T) {
	pub := &fakePublisher{receivers: 1}
	d := NewNotificationDispatcher(&fakeSource{}, pub, nil)
	userID := uuid.New()
	before := testutil.ToFloat64(metrics.NotificationsDispatched.WithLabelValues(StatusDelivered))

	require.NoError(t, d.Process(context.Background(), notificationJob(t, userID)))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, userID, pub.sent[0].userID)
	assert.Equal(t, "notification", pub.sent[0].event)
	assert.Contains(t, string(pub.sent[0].data), `"message":"joined"`)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsDispatched.WithLabelValues(StatusDelivered)))
}

func TestProcessRejectsBadJobs(t *testing.T) {
	d := NewNotificationDispatcher(&fakeSource{}, &fakePublisher{}, nil)

	assert.Error(t, d.Process(context.Background(), &queue.Job{Type: "email"}))
	assert.Error(t, d.Process(context.Background(), &queue.Job{Type: queue.JobTypeNotification, Payload: json.RawMessage(`{`)}))
	assert.Error(t, d.Process(context.Background(), &queue.Job{Type: queue.JobTypeNotification, Payload: json.RawMessage(`{}`)}))
}

func TestRunRetriesUntilPublished(t *testing.T) {
	src := &fakeSource{jobs: make(chan *queue.Job, 4)}
	pub := &fakePublisher{failFirst: 1}
	d := NewNotificationDispatcher(src, pub, nil)
	d.backoff = time.Millisecond
	src.jobs <- notificationJob(t, uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int{1}, src.retried)
}

func TestRunDeadLettersAfterMaxRetries(t *testing.T) {
	src := &fakeSource{jobs: make(chan *queue.Job, 4)}
	pub := &fakePublisher{failFirst: queue.MaxRetries}
	d := NewNotificationDispatcher(src, pub, nil)
	d.backoff = time.Millisecond
	src.jobs <- notificationJob(t, uuid.New())
	before := testutil.ToFloat64(metrics.NotificationsDispatched.WithLabelValues(StatusDead))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.NotificationsDispatched.WithLabelValues(StatusDead)) == before+1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, pub.count())
}
