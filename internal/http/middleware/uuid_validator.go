package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
)

// UUIDValidator проверяет, что перечисленные параметры пути являются валидными UUID.
// Использование: router.GET("/contracts/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range paramNames {
			idStr := c.Param(name)
			if idStr == "" {
				response.BadRequest(c, "параметр "+name+" обязателен")
				return
			}
			if _, err := uuid.Parse(idStr); err != nil {
				response.BadRequest(c, "параметр "+name+" должен быть валидным UUID")
				return
			}
		}

		c.Next()
	}
}
