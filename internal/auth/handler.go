package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/models"
	"github.com/eventia/backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the auth response: the user without credentials plus a session token.
type UserResponse struct {
	User  models.UserPublic `json:"user"`
	Token string            `json:"token,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperr.FieldGeneral, "invalid request body")
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	response.Created(c, h.withToken(*user))
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, apperr.FieldGeneral, "invalid request body")
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	response.OK(c, h.withToken(*user))
}

func (h *Handler) withToken(user models.UserPublic) UserResponse {
	resp := UserResponse{User: user}
	if h.jwt == nil {
		return resp
	}
	token, err := h.jwt.Generate(user)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		return resp
	}
	resp.Token = token
	return resp
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !apperr.IsClientError(err) {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	response.Error(c, err)
}
