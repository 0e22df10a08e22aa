package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
)

// RedisBroker рассылает события через PUBLISH/SUBSCRIBE, поэтому работает между экземплярами сервиса.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, userID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pubsub: не удалось сериализовать событие: %w", err)
	}
	if err := b.rdb.Publish(ctx, topic(userID), payload).Err(); err != nil {
		return fmt.Errorf("pubsub: не удалось опубликовать событие: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, topic(userID))
	// Receive дожидается подтверждения подписки, иначе первые события могут потеряться.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("pubsub: не удалось подписаться: %w", err)
	}

	sub := &redisSubscription{ps: ps, ch: make(chan Event, subscriptionBuffer)}
	go sub.forward(userID)
	return sub, nil
}

// Close закрывает клиент Redis.
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan Event
	once sync.Once
}

func (s *redisSubscription) forward(userID uuid.UUID) {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Log.WithFields(logrus.Fields{"user_id": userID, "error": err}).
				Warn("pubsub: получено некорректное событие")
			continue
		}
		select {
		case s.ch <- event:
		default:
			logger.Log.WithFields(logrus.Fields{"user_id": userID, "event": event.Type}).
				Warn("pubsub: буфер подписчика переполнен, событие пропущено")
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() { err = s.ps.Close() })
	return err
}
