package events

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/middleware"
	"github.com/eventia/backend/pkg/response"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t, nil
		}
		err = perr
	}
	return time.Time{}, err
}

// EventRequest is the body for POST /events and PUT /events/:id.
// CreatedBy is ignored on update.
type EventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Capacity    int      `json:"capacity"`
	Category    string   `json:"category"`
	CreatedBy   string   `json:"createdBy"`
	Image       *string  `json:"image"`
}

func (r EventRequest) input() (Input, error) {
	if strings.TrimSpace(r.Date) == "" {
		return Input{}, apperr.Validation("date", "date is required")
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return Input{}, apperr.Validation("date", "invalid date")
	}
	return Input{
		Title:       r.Title,
		Description: r.Description,
		Date:        date,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Capacity:    r.Capacity,
		Category:    r.Category,
		Image:       r.Image,
	}, nil
}

// Handler handles event catalog HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list events", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get event", err)
		return
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperr.FieldGeneral, "invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		response.Error(c, err)
		return
	}
	creator, err := resolveCreator(c, req.CreatedBy)
	if err != nil {
		middleware.RespondResolveError(c, err)
		return
	}
	in.CreatedBy = creator

	e, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create event", err)
		return
	}
	response.Created(c, e)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperr.FieldGeneral, "invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, "update event", err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete event", err)
		return
	}
	response.Message(c, "Event and registrations deleted")
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !apperr.IsClientError(err) {
		h.logger.Error(op+" failed", zap.Error(err), zap.String("event_id", c.Param("id")))
	}
	response.Error(c, err)
}

func eventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "id", "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}

// resolveCreator returns the creator to record. The creator is optional for
// anonymous requests; with a token it defaults to, and must equal, the subject.
func resolveCreator(c *gin.Context, supplied string) (*uuid.UUID, error) {
	if _, authenticated := middleware.TokenUser(c); !authenticated && strings.TrimSpace(supplied) == "" {
		return nil, nil
	}
	id, err := middleware.ResolveUser(c, supplied)
	if err != nil {
		if apperr.FieldOf(err) == "userId" {
			return nil, apperr.Validation("createdBy", "invalid createdBy")
		}
		return nil, err
	}
	return &id, nil
}
