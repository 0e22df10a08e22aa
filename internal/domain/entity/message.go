package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const MaxMessageLength = 5000

type Message struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Content    string
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

func NewMessage(senderID, receiverID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не должно превышать 5000 символов")
	}
	if senderID == receiverID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя отправить сообщение самому себе")
	}
	return &Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) IsParticipant(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// ConversationSummary последняя переписка с одним собеседником.
type ConversationSummary struct {
	PartnerID   uuid.UUID
	LastMessage Message
	UnreadCount int
}
