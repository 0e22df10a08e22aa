package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error)
	FindConversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]*entity.Message, int, error)
	ExistsBetween(ctx context.Context, userID, partnerID uuid.UUID) (bool, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkConversationRead(ctx context.Context, readerID, partnerID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, readerID uuid.UUID) error
}
