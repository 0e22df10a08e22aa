package common

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/http/middleware"
)

var (
	// ErrUserNotFound is returned when user is not found in context
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentUserRole extracts user role from Gin context
func CurrentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotFound
	}

	role, ok := raw.(string)
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// RequestMeta собирает метаданные клиента для сессии.
func RequestMeta(c *gin.Context) map[string]string {
	return map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}
}
