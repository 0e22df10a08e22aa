package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
)

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" binding:"required"`
	Content    string    `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID         uuid.UUID  `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ConversationSummaryResponse struct {
	PartnerID   uuid.UUID       `json:"partner_id"`
	LastMessage MessageResponse `json:"last_message"`
	UnreadCount int             `json:"unread_count"`
}

func ToMessageResponse(msg *entity.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		IsRead:     msg.IsRead,
		ReadAt:     msg.ReadAt,
		CreatedAt:  msg.CreatedAt,
	}
}

func ToMessageResponses(messages []*entity.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, ToMessageResponse(msg))
	}
	return responses
}

func ToConversationSummaryResponses(items []*entity.ConversationSummary) []ConversationSummaryResponse {
	responses := make([]ConversationSummaryResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, ConversationSummaryResponse{
			PartnerID:   item.PartnerID,
			LastMessage: ToMessageResponse(&item.LastMessage),
			UnreadCount: item.UnreadCount,
		})
	}
	return responses
}
