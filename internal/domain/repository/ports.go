package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
)

// UserReader нужен сценариям, которым достаточно проверить существование пользователя.
type UserReader interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier доставляет уведомления, не блокируя вызывающего.
type Notifier interface {
	Notify(ctx context.Context, event entity.NotificationEvent)
}

// RealtimePublisher отправляет событие подключённым клиентам пользователя.
type RealtimePublisher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, event string, data any)
}
