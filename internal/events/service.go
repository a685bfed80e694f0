package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/internal/models"
)

// Store is the persistence the catalog needs.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	DeleteCascade(ctx context.Context, id uuid.UUID) (DeleteResult, error)
}

// ImageStore moves inline images out of the database. Offload returns the
// value to persist in place of image; Remove forgets a value Offload produced
// and ignores anything else.
type ImageStore interface {
	Offload(ctx context.Context, eventID uuid.UUID, image string) (string, error)
	Remove(ctx context.Context, image string) error
}

// Input carries the caller-editable fields of an event.
type Input struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Latitude    *float64
	Longitude   *float64
	Capacity    int
	Category    string
	Image       *string
	CreatedBy   *uuid.UUID
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title", "title is required")
	}
	if in.Date.IsZero() {
		return apperr.Validation("date", "date is required")
	}
	if in.Capacity < 0 {
		return apperr.Validation("capacity", "capacity must not be negative")
	}
	return nil
}

func (in Input) category() string {
	if c := strings.TrimSpace(in.Category); c != "" {
		return c
	}
	return models.DefaultCategory
}

// Service is the event catalog.
type Service struct {
	store  Store
	images ImageStore
	logger *zap.Logger
}

// NewService creates the catalog. images may be nil, in which case images
// are stored exactly as supplied.
func NewService(store Store, images ImageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, images: images, logger: logger}
}

// Create stores a new event with zero attendees.
func (s *Service) Create(ctx context.Context, in Input) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e := &models.Event{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Capacity:    in.Capacity,
		Category:    in.category(),
		CreatedBy:   in.CreatedBy,
	}
	image, uploaded, err := s.offload(ctx, e.ID, in.Image)
	if err != nil {
		return nil, err
	}
	e.Image = image

	if err := s.store.Create(ctx, e); err != nil {
		if uploaded {
			s.removeImage(ctx, e.Image)
		}
		if apperr.IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns every event ordered by date, latest first.
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if list == nil {
		list = []models.Event{}
	}
	return list, nil
}

// Update replaces the descriptive fields of an event. The attendee counter
// and creator are never modified here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var previous *string
	if s.images != nil {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		previous = current.Image
	}

	e := &models.Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Capacity:    in.Capacity,
		Category:    in.category(),
	}
	image, uploaded, err := s.offload(ctx, id, in.Image)
	if err != nil {
		return nil, err
	}
	e.Image = image

	if err := s.store.Update(ctx, e); err != nil {
		if uploaded {
			s.removeImage(ctx, e.Image)
		}
		if errors.Is(err, apperr.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !sameImage(e.Image, previous) {
		s.removeImage(ctx, previous)
	}
	return e, nil
}

// Delete removes an event together with its registrations. Deleting an
// unknown event succeeds.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.store.DeleteCascade(ctx, id)
	if err != nil {
		metrics.TxRollbacks.WithLabelValues("delete_event").Inc()
		return apperr.Transaction("delete event", err)
	}
	if !res.Found {
		s.logger.Debug("delete of unknown event", zap.String("event_id", id.String()))
		return nil
	}
	metrics.CascadeDeletedRegistrations.Add(float64(res.Registrations))
	s.logger.Info("event deleted",
		zap.String("event_id", id.String()),
		zap.Int64("registrations", res.Registrations),
	)
	s.removeImage(ctx, res.Image)
	return nil
}

// offload reports whether the returned image is a freshly stored object.
func (s *Service) offload(ctx context.Context, id uuid.UUID, image *string) (*string, bool, error) {
	if image == nil || *image == "" {
		return nil, false, nil
	}
	if s.images == nil {
		return image, false, nil
	}
	stored, err := s.images.Offload(ctx, id, *image)
	if err != nil {
		if apperr.IsClientError(err) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("store event image: %w", err)
	}
	return &stored, stored != *image, nil
}

func (s *Service) removeImage(ctx context.Context, image *string) {
	if s.images == nil || image == nil || *image == "" {
		return
	}
	if err := s.images.Remove(ctx, *image); err != nil {
		s.logger.Warn("remove event image failed", zap.Error(err), zap.String("image", *image))
	}
}

func sameImage(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
