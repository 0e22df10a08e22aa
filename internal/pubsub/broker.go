package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event сообщение для клиентов пользователя. Формат совпадает с кадром WebSocket.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent сериализует полезную нагрузку события.
func NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("pubsub: не удалось сериализовать событие %s: %w", eventType, err)
	}
	return Event{Type: eventType, Data: raw}, nil
}

// Subscription поток событий одного пользователя. Close можно вызывать повторно.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Broker доставляет события подписчикам по userID.
type Broker interface {
	Publish(ctx context.Context, userID uuid.UUID, event Event) error
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)
	Close() error
}

func topic(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}
