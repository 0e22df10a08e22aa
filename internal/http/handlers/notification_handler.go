package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, total, err := h.notifications.ListNotifications(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, notifications, total, limit, offset)
}

// UnreadCount обрабатывает GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"count": count})
}

// MarkAsRead обрабатывает PUT /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор уведомления")
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "уведомление отмечено как прочитанное", nil)
}

// MarkAllAsRead обрабатывает PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	updated, err := h.notifications.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"updated": updated})
}

// DeleteNotification обрабатывает DELETE /notifications/:id.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор уведомления")
		return
	}

	if err := h.notifications.DeleteNotification(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "уведомление удалено", nil)
}
