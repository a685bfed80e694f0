package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventia/backend/internal/apperr"
)

func TestErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		field   string
		message string
	}{
		{"capacity", apperr.ErrCapacityExceeded, http.StatusBadRequest, "general", "event is full"},
		{"validation", apperr.Validation("password", "too short"), http.StatusBadRequest, "password", "too short"},
		{"not found", apperr.ErrEventNotFound, http.StatusNotFound, "general", "event not found"},
		{"credential", apperr.ErrUnknownUser, http.StatusUnauthorized, "username", "user does not exist"},
		{"transaction", apperr.Transaction("join event", errors.New("secret detail")), http.StatusInternalServerError, "general", ServerErrorMessage},
		{"plain", errors.New("secret detail"), http.StatusInternalServerError, "general", ServerErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.field, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, w.Body.String(), "secret detail")
		})
	}
}

func TestMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Message(c, "done")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"done"}`, w.Body.String())
}
