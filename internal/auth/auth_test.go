package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintParseRoundtrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	actor := Actor{ID: uuid.New(), Role: RoleVendor}

	tokenString, err := svc.Mint(actor)
	require.NoError(t, err)

	parsed, err := svc.Parse(tokenString)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, parsed.ID)
	assert.Equal(t, RoleVendor, parsed.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	minter := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)

	tokenString, err := minter.Mint(Actor{ID: uuid.New(), Role: RoleAdmin})
	require.NoError(t, err)

	_, err = verifier.Parse(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	tokenString, err := svc.Mint(Actor{ID: uuid.New(), Role: RoleCollector})
	require.NoError(t, err)

	_, err = svc.Parse(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newTestRouter(svc *Service, roles ...Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", Authenticate(svc))
	handlers := []gin.HandlerFunc{}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"actor_id": actor.ID.String(), "role": string(actor.Role)})
	})
	group.GET("/protected", handlers...)
	return r
}

func TestAuthenticateMiddleware(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	router := newTestRouter(svc)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tokenString, err := svc.Mint(Actor{ID: uuid.New(), Role: RoleFactory})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "factory")
	})
}

func TestRequireRole(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	router := newTestRouter(svc, RoleAdmin, RoleFactory)

	request := func(role Role) int {
		tokenString, err := svc.Mint(Actor{ID: uuid.New(), Role: role})
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request(RoleAdmin))
	assert.Equal(t, http.StatusOK, request(RoleFactory))
	assert.Equal(t, http.StatusForbidden, request(RoleVendor))
	assert.Equal(t, http.StatusForbidden, request(RoleCollector))
}
