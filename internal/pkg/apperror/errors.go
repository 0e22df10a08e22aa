package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeState         ErrorCode = "STATE_ERROR"
	ErrCodeStorage       ErrorCode = "STORAGE_ERROR"
)

// FieldError описывает одно нарушение валидации.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Fields     []FieldError
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation собирает все нарушения в одну ошибку.
func Validation(fields []FieldError) *AppError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    strings.Join(parts, "; "),
		HTTPStatus: http.StatusBadRequest,
		Fields:     fields,
	}
}

// State возвращает ошибку недопустимого перехода состояния.
func State(message string) *AppError {
	return New(ErrCodeState, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeState:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

func IsState(err error) bool {
	return hasCode(err, ErrCodeState)
}

var (
	ErrJobNotFound        = New(ErrCodeNotFound, "вакансия не найдена")
	ErrProposalNotFound   = New(ErrCodeNotFound, "предложение не найдено")
	ErrContractNotFound   = New(ErrCodeNotFound, "контракт не найден")
	ErrMilestoneNotFound  = New(ErrCodeNotFound, "этап не найден")
	ErrSubmissionNotFound = New(ErrCodeNotFound, "сдача работы не найдена")
	ErrFileNotFound       = New(ErrCodeNotFound, "файл не найден")
	ErrMessageNotFound    = New(ErrCodeNotFound, "сообщение не найдено")
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrAlreadyApplied     = New(ErrCodeConflict, "вы уже откликнулись на эту вакансию")
	ErrContractExists     = New(ErrCodeConflict, "контракт по этому предложению уже создан")
	ErrConcurrentUpdate   = New(ErrCodeState, "статус изменён параллельным запросом")
)
