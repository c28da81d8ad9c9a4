package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/coursechat/pkg/auth"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
	TokenKey  = "token"
)

// Blacklist - хранилище отозванных токенов (Redis в prod)
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware проверяет JWT токен из Authorization header
func AuthMiddleware(jwtManager *auth.JWTManager, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			abortUnauthorized(c, "missing or invalid token")
			return
		}
		authenticate(c, jwtManager, blacklist, token)
	}
}

// WSAuthMiddleware специальный middleware для WebSocket: токен из ?token= или header
func WSAuthMiddleware(jwtManager *auth.JWTManager, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = auth.ParseBearer(c.GetHeader("Authorization"))
		}

		if token == "" {
			abortUnauthorized(c, "missing token")
			return
		}
		authenticate(c, jwtManager, blacklist, token)
	}
}

func authenticate(c *gin.Context, jwtManager *auth.JWTManager, blacklist Blacklist, token string) {
	// Проверяем, не в черном списке ли токен
	revoked, err := blacklist.IsRevoked(c.Request.Context(), token)
	if err != nil || revoked {
		abortUnauthorized(c, "token is blacklisted")
		return
	}

	claims, err := jwtManager.Verify(token)
	if err != nil {
		abortUnauthorized(c, "invalid token")
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		abortUnauthorized(c, "invalid user id")
		return
	}

	c.Set(UserIDKey, userID)
	c.Set(RoleKey, claims.Role)
	c.Set(TokenKey, token)
	c.Next()
}

// RequireRole пропускает только пользователей с указанной ролью
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID достаёт userID, выставленный AuthMiddleware
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}
