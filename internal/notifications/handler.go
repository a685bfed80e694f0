package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/middleware"
	"github.com/eventia/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// ListForUser handles GET /notifications/user/:userId.
func (h *Handler) ListForUser(c *gin.Context) {
	userID, err := middleware.ResolveUser(c, c.Param("userId"))
	if err != nil {
		middleware.RespondResolveError(c, err)
		return
	}
	list, err := h.svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "id", "invalid notification id")
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id); err != nil {
		h.logger.Error("mark notification read failed", zap.Error(err), zap.String("notification_id", id.String()))
		response.Internal(c)
		return
	}
	response.Message(c, "Notification marked as read")
}
