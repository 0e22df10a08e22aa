package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// AccessTokenCookie cookie, из которой берётся токен при отсутствии заголовка.
const AccessTokenCookie = "access_token"

// AuthMiddleware проверяет JWT access токен из заголовка Authorization или cookie.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// OptionalAuthMiddleware заполняет контекст, если передан валидный токен, и пропускает гостей.
func OptionalAuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if userID, role, err := tokens.ParseAccess(raw); err == nil && userID != uuid.Nil {
				c.Set(ContextUserIDKey, userID)
				c.Set(ContextRoleKey, role)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}
