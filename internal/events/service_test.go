package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/internal/models"
)

func sampleInput() Input {
	return Input{
		Title:    "Go meetup",
		Date:     time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC),
		Location: "Madrid",
		Capacity: 30,
	}
}

func strPtr(s string) *string { return &s }

func TestCreateDefaultsCategoryAndZeroAttendees(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	e, err := svc.Create(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, models.DefaultCategory, e.Category)
	assert.Zero(t, e.Attendees)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	in := sampleInput()
	in.Capacity = -1
	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "capacity", apperr.FieldOf(err))

	in = sampleInput()
	in.Title = "  "
	_, err = svc.Create(context.Background(), in)
	assert.Equal(t, "title", apperr.FieldOf(err))
}

func TestUpdateKeepsAttendees(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	e, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	stored := store.events[e.ID]
	stored.Attendees = 7
	store.events[e.ID] = stored

	in := sampleInput()
	in.Title = "Go meetup (moved)"
	in.Category = "Tech"
	updated, err := svc.Update(ctx, e.ID, in)

	require.NoError(t, err)
	assert.Equal(t, "Go meetup (moved)", updated.Title)
	assert.Equal(t, "Tech", updated.Category)
	assert.Equal(t, 7, updated.Attendees)
}

func TestUpdateUnknownEvent(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	_, err := svc.Update(context.Background(), uuid.New(), sampleInput())

	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	e, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	store.registrations[e.ID] = 3

	before := testutil.ToFloat64(metrics.CascadeDeletedRegistrations)
	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.CascadeDeletedRegistrations))

	require.NoError(t, svc.Delete(ctx, e.ID))
	_, err = svc.Get(ctx, e.ID)
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
}

func TestDeleteFailureIsTransactionError(t *testing.T) {
	store := newMemStore()
	store.failDelete = errors.New("connection reset")
	svc := NewService(store, nil, nil)

	err := svc.Delete(context.Background(), uuid.New())

	assert.Equal(t, apperr.KindTransaction, apperr.KindOf(err))
	assert.False(t, apperr.IsClientError(err))
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	list, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListOrderedByDateDesc(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	ctx := context.Background()
	early := sampleInput()
	early.Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := sampleInput()
	late.Date = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, early)
	require.NoError(t, err)
	_, err = svc.Create(ctx, late)
	require.NoError(t, err)

	list, err := svc.List(ctx)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.After(list[1].Date))
}

func TestImageOffloadLifecycle(t *testing.T) {
	images := newMemImages()
	svc := NewService(newMemStore(), images, nil)
	ctx := context.Background()

	in := sampleInput()
	in.Image = strPtr("data:image/png;base64,iVBORw0KGgo=")
	e, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, e.Image)
	assert.Contains(t, *e.Image, "https://images.test/events/")
	assert.Equal(t, 1, images.count())

	in.Image = strPtr("data:image/png;base64,AAAA")
	updated, err := svc.Update(ctx, e.ID, in)
	require.NoError(t, err)
	assert.NotEqual(t, *e.Image, *updated.Image)
	assert.Equal(t, 1, images.count(), "replaced image is removed")

	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.Zero(t, images.count())
}

func TestImageOffloadFailureAbortsCreate(t *testing.T) {
	images := newMemImages()
	images.failPut = errors.New("bucket unreachable")
	store := newMemStore()
	svc := NewService(store, images, nil)

	in := sampleInput()
	in.Image = strPtr("data:image/png;base64,AAAA")
	_, err := svc.Create(context.Background(), in)

	require.Error(t, err)
	assert.Empty(t, store.events)
}

func TestExternalImageURLKeptAsIs(t *testing.T) {
	images := newMemImages()
	svc := NewService(newMemStore(), images, nil)

	in := sampleInput()
	in.Image = strPtr("https://cdn.example.com/poster.jpg")
	e, err := svc.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/poster.jpg", *e.Image)
	assert.Zero(t, images.count())
}
