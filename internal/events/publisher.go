package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
)

const DefaultExchange = "marketplace.events"

// Refs ссылки уведомления на связанные сущности.
type Refs struct {
	JobID      *uuid.UUID `json:"job_id,omitempty"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	PostID     *uuid.UUID `json:"post_id,omitempty"`
}

// DomainEvent тело сообщения в обменнике.
type DomainEvent struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	SenderID   *uuid.UUID `json:"sender_id,omitempty"`
	Refs       Refs       `json:"refs"`
	Message    string     `json:"message"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// FromNotification строит событие из сохранённого уведомления.
func FromNotification(n *models.Notification) DomainEvent {
	return DomainEvent{
		ID:       n.ID,
		Type:     n.Type,
		UserID:   n.UserID,
		SenderID: n.SenderID,
		Refs: Refs{
			JobID:      n.JobID,
			ProposalID: n.ProposalID,
			ContractID: n.ContractID,
			PostID:     n.PostID,
		},
		Message:    n.Message,
		OccurredAt: n.CreatedAt,
	}
}

// RoutingKey ключ маршрутизации: тип в нижнем регистре, например milestone_submitted.
func RoutingKey(notificationType string) string {
	return strings.ToLower(notificationType)
}

// Publisher публикует доменные события в topic-обменник RabbitMQ.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher подключается к брокеру и объявляет обменник.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishNotification отправляет уведомление как доменное событие.
func (p *Publisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(FromNotification(n))
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("events: connection closed")
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKey(n.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    n.ID.String(),
		Timestamp:    n.CreatedAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", n.Type, err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}
