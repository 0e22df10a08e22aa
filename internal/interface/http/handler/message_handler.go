package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/message"
)

type MessageHandler struct {
	sendUC          *message.SendMessageUseCase
	conversationUC  *message.GetConversationUseCase
	conversationsUC *message.ListConversationsUseCase
	unreadCountUC   *message.UnreadCountUseCase
	markReadUC      *message.MarkReadUseCase
}

func NewMessageHandler(
	sendUC *message.SendMessageUseCase,
	conversationUC *message.GetConversationUseCase,
	conversationsUC *message.ListConversationsUseCase,
	unreadCountUC *message.UnreadCountUseCase,
	markReadUC *message.MarkReadUseCase,
) *MessageHandler {
	return &MessageHandler{
		sendUC:          sendUC,
		conversationUC:  conversationUC,
		conversationsUC: conversationsUC,
		unreadCountUC:   unreadCountUC,
		markReadUC:      markReadUC,
	}
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	msg, err := h.sendUC.Execute(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToMessageResponse(msg))
}

func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	partnerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пользователя")
		return
	}

	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}

	messages, total, err := h.conversationUC.Execute(c.Request.Context(), userID, partnerID, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToMessageResponses(messages), total,
		message.ConversationPageLimit, (page-1)*message.ConversationPageLimit)
}

func (h *MessageHandler) Conversations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	items, err := h.conversationsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToConversationSummaryResponses(items))
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	count, err := h.unreadCountUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"count": count})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID сообщения")
		return
	}

	if err := h.markReadUC.Execute(c.Request.Context(), messageID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "сообщение прочитано", nil)
}
