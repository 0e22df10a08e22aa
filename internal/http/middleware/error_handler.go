package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

// ErrorHandler логирует ошибки запроса и отвечает конвертом, если хэндлер ничего не записал.
// Внутренние ошибки наружу не отдаются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		last := c.Errors.Last()
		fields := logrus.Fields{
			"error":  last.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": c.Writer.Status(),
		}
		if userID, ok := c.Get(ContextUserIDKey); ok {
			fields["user_id"] = userID
		}
		logger.Log.WithFields(fields).Error("request error")

		if c.Writer.Written() {
			return
		}

		var appErr *apperror.AppError
		if errors.As(last.Err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			response.Error(c, appErr)
			return
		}
		response.Error(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
	}
}

// Recovery перехватывает панику хэндлера и отвечает 500 в общем конверте.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Log.WithFields(logrus.Fields{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("panic recovered")
		response.Error(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
		c.Abort()
	})
}
