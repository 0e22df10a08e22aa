package message

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const (
	EventMessageNew  = "message:new"
	EventMessageRead = "message:read"

	ConversationPageLimit = 50
)

type SendMessageUseCase struct {
	msgRepo  repository.MessageRepository
	users    repository.UserReader
	notifier repository.Notifier
	realtime repository.RealtimePublisher
}

func NewSendMessageUseCase(msgRepo repository.MessageRepository, users repository.UserReader, notifier repository.Notifier, realtime repository.RealtimePublisher) *SendMessageUseCase {
	return &SendMessageUseCase{msgRepo: msgRepo, users: users, notifier: notifier, realtime: realtime}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*entity.Message, error) {
	msg, err := entity.NewMessage(senderID, receiverID, content)
	if err != nil {
		return nil, err
	}

	exists, err := uc.users.Exists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrUserNotFound
	}

	hadConversation, err := uc.msgRepo.ExistsBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	if err := uc.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	uc.realtime.PublishToUser(ctx, receiverID, EventMessageNew, msg)
	if !hadConversation {
		uc.notifier.Notify(ctx, entity.NotificationEvent{
			RecipientID: receiverID,
			SenderID:    senderID,
			Type:        valueobject.NotificationNewMessage,
			Message:     "У вас новое сообщение",
		})
	}
	return msg, nil
}

type GetConversationUseCase struct {
	msgRepo repository.MessageRepository
}

func NewGetConversationUseCase(msgRepo repository.MessageRepository) *GetConversationUseCase {
	return &GetConversationUseCase{msgRepo: msgRepo}
}

// Execute отдаёт переписку и помечает входящие сообщения прочитанными.
func (uc *GetConversationUseCase) Execute(ctx context.Context, userID, partnerID uuid.UUID, page int) ([]*entity.Message, int, error) {
	if page < 1 {
		page = 1
	}
	messages, total, err := uc.msgRepo.FindConversation(ctx, userID, partnerID, ConversationPageLimit, (page-1)*ConversationPageLimit)
	if err != nil {
		return nil, 0, err
	}
	if _, err := uc.msgRepo.MarkConversationRead(ctx, userID, partnerID); err != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "partner_id": partnerID, "error": err}).
			Warn("не удалось отметить сообщения прочитанными")
	}
	return messages, total, nil
}

type ListConversationsUseCase struct {
	msgRepo repository.MessageRepository
}

func NewListConversationsUseCase(msgRepo repository.MessageRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{msgRepo: msgRepo}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error) {
	return uc.msgRepo.ListConversations(ctx, userID)
}

type UnreadCountUseCase struct {
	msgRepo repository.MessageRepository
}

func NewUnreadCountUseCase(msgRepo repository.MessageRepository) *UnreadCountUseCase {
	return &UnreadCountUseCase{msgRepo: msgRepo}
}

func (uc *UnreadCountUseCase) Execute(ctx context.Context, userID uuid.UUID) (int, error) {
	return uc.msgRepo.CountUnread(ctx, userID)
}

type MarkReadUseCase struct {
	msgRepo  repository.MessageRepository
	realtime repository.RealtimePublisher
}

func NewMarkReadUseCase(msgRepo repository.MessageRepository, realtime repository.RealtimePublisher) *MarkReadUseCase {
	return &MarkReadUseCase{msgRepo: msgRepo, realtime: realtime}
}

// Execute отмечает сообщение прочитанным и уведомляет отправителя.
func (uc *MarkReadUseCase) Execute(ctx context.Context, messageID, readerID uuid.UUID) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != readerID {
		return apperror.ErrForbidden
	}
	if msg.IsRead {
		return nil
	}
	if err := uc.msgRepo.MarkRead(ctx, messageID, readerID); err != nil {
		return err
	}
	uc.realtime.PublishToUser(ctx, msg.SenderID, EventMessageRead, map[string]any{
		"message_id": msg.ID,
		"reader_id":  readerID,
	})
	return nil
}
