package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventia/backend/pkg/utils"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(newMemStore(), utils.PasswordHasher{Cost: bcrypt.MinCost})
	h := NewHandler(svc, NewJWTService("secret", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLoginContract(t *testing.T) {
	r := newTestRouter()

	w := postJSON(r, "/auth/register", map[string]string{"username": "alice", "password": "pw12345", "name": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		User  map[string]interface{} `json:"user"`
		Token string                 `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "user", created.User["role"])
	assert.NotContains(t, created.User, "password_hash")
	assert.NotEmpty(t, created.Token)

	w = postJSON(r, "/auth/register", map[string]string{"username": "alice", "password": "whatever", "name": "A"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"username","message":"username already exists"}`, w.Body.String())

	w = postJSON(r, "/auth/login", map[string]string{"username": "alice", "password": "pw12345"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestLoginFailuresAreFieldTagged(t *testing.T) {
	r := newTestRouter()
	postJSON(r, "/auth/register", map[string]string{"username": "alice", "password": "pw12345", "name": "Alice"})

	w := postJSON(r, "/auth/login", map[string]string{"username": "nobody", "password": "pw12345"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"username"`)

	w = postJSON(r, "/auth/login", map[string]string{"username": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"password"`)
	assert.NotContains(t, w.Body.String(), "user\":")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestRegisterShortPassword(t *testing.T) {
	r := newTestRouter()

	w := postJSON(r, "/auth/register", map[string]string{"username": "bob", "password": "123", "name": "Bob"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"password"`)
}
