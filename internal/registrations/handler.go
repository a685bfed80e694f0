package registrations

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/middleware"
	"github.com/eventia/backend/pkg/response"
)

// AttendanceRequest is the body for POST /events/:id/register and /unregister.
// UserID may be omitted when the request carries a token.
type AttendanceRequest struct {
	UserID string `json:"userId"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, userID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.Join(c.Request.Context(), eventID, userID); err != nil {
		h.fail(c, "register", err)
		return
	}
	response.Message(c, "Successfully registered")
}

// Unregister handles POST /events/:id/unregister.
func (h *Handler) Unregister(c *gin.Context) {
	eventID, userID, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.svc.Leave(c.Request.Context(), eventID, userID); err != nil {
		h.fail(c, "unregister", err)
		return
	}
	response.Message(c, "Registration cancelled successfully")
}

// ListForUser handles GET /registrations/user/:userId.
func (h *Handler) ListForUser(c *gin.Context) {
	userID, err := middleware.ResolveUser(c, c.Param("userId"))
	if err != nil {
		middleware.RespondResolveError(c, err)
		return
	}
	ids, err := h.svc.ListEventIDsForUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "list registrations", err)
		return
	}
	response.OK(c, ids)
}

func (h *Handler) bind(c *gin.Context) (eventID, userID uuid.UUID, ok bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "id", "invalid event id")
		return uuid.Nil, uuid.Nil, false
	}
	var req AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, apperr.FieldGeneral, "invalid request body")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = middleware.ResolveUser(c, req.UserID)
	if err != nil {
		middleware.RespondResolveError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return eventID, userID, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !apperr.IsClientError(err) {
		h.logger.Error(op+" failed", zap.Error(err),
			zap.String("event_id", c.Param("id")),
			zap.String("user_id", c.Param("userId")),
		)
	}
	response.Error(c, err)
}
