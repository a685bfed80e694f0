package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventia/backend/internal/apperr"
	"github.com/eventia/backend/internal/auth"
	"github.com/eventia/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
)

// ErrActingUserMismatch is returned when a body id names a different user than the token.
var ErrActingUserMismatch = errors.New("user id does not match token")

// JWT returns a middleware that validates a bearer token and sets user claims in context.
// With required=false, requests without an Authorization header pass through
// anonymously; a header that is present must still be valid.
func JWT(jwtService *auth.JWTService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				response.Unauthorized(c, apperr.FieldGeneral, "missing authorization header")
				c.Abort()
				return
			}
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, apperr.FieldGeneral, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, apperr.FieldGeneral, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// TokenUser returns the authenticated user id, if any.
func TokenUser(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// ResolveUser picks the acting user for a request: the id supplied by the
// client, or the token subject when the client omitted it. When both are
// present they must agree.
func ResolveUser(c *gin.Context, supplied string) (uuid.UUID, error) {
	tokenID, authenticated := TokenUser(c)
	if strings.TrimSpace(supplied) == "" {
		if authenticated {
			return tokenID, nil
		}
		return uuid.Nil, apperr.Validation("userId", "userId is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(supplied))
	if err != nil {
		return uuid.Nil, apperr.Validation("userId", "invalid userId")
	}
	if authenticated && id != tokenID {
		return uuid.Nil, ErrActingUserMismatch
	}
	return id, nil
}

// RespondResolveError writes the response for a ResolveUser failure.
func RespondResolveError(c *gin.Context, err error) {
	if errors.Is(err, ErrActingUserMismatch) {
		response.Forbidden(c, err.Error())
		return
	}
	response.Error(c, err)
}
