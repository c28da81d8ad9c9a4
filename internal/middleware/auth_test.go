package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/coursechat/internal/cache"
	"github.com/thereayou/coursechat/pkg/auth"
)

func newRouter(jwtMgr *auth.JWTManager, bl Blacklist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.String(http.StatusOK, id.String())
	}
	r.GET("/me", AuthMiddleware(jwtMgr, bl), whoami)
	r.GET("/ws", WSAuthMiddleware(jwtMgr, bl), whoami)
	r.GET("/tutor", AuthMiddleware(jwtMgr, bl), RequireRole("tutor"), whoami)
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtMgr := auth.NewJWTManager("secret", time.Hour)
	bl := cache.NewMemory()
	r := newRouter(jwtMgr, bl)

	userID := uuid.New()
	token, err := jwtMgr.Generate(userID.String(), "student")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, "/tutor", token).Code)

	require.NoError(t, bl.Revoke(context.Background(), token, time.Minute))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token).Code)
}

func TestWSAuthAcceptsQueryToken(t *testing.T) {
	jwtMgr := auth.NewJWTManager("secret", time.Hour)
	r := newRouter(jwtMgr, cache.NewMemory())

	token, err := jwtMgr.Generate(uuid.NewString(), "tutor")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(r, "/ws?token="+token, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/ws", token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/ws", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/tutor", token).Code)
}
