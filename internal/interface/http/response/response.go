package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Warnings interface{} `json:"warnings,omitempty"`
}

type ErrorInfo struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage отдаёт данные вместе с пояснением для клиента.
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// CreatedWithWarnings используется, когда операция прошла частично успешно.
func CreatedWithWarnings(c *gin.Context, data interface{}, warnings interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success:  true,
		Data:     data,
		Warnings: warnings,
	})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    string(appErr.Code),
				Message: appErr.Message,
				Fields:  appErr.Fields,
			},
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(apperror.ErrCodeInternal),
			Message: "внутренняя ошибка сервера",
		},
	})
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, apperror.ErrCodeNotFound, message)
}

func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}

func TooManyRequests(c *gin.Context, message string) {
	abort(c, http.StatusTooManyRequests, apperror.ErrCodeBadRequest, message)
}

func abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	})
}
