package pubsub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
)

const subscriptionBuffer = 32

// MemoryBroker работает в пределах одного процесса.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uuid.UUID]map[*memorySubscription]struct{})}
}

// Publish не блокируется: медленный подписчик теряет событие.
func (b *MemoryBroker) Publish(_ context.Context, userID uuid.UUID, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[userID] {
		select {
		case sub.ch <- event:
		default:
			logger.Log.WithFields(logrus.Fields{"user_id": userID, "event": event.Type}).
				Warn("pubsub: буфер подписчика переполнен, событие пропущено")
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, userID uuid.UUID) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySubscription{broker: b, userID: userID, ch: make(chan Event, subscriptionBuffer)}
	if b.closed {
		close(sub.ch)
		sub.done = true
		return sub, nil
	}
	if _, ok := b.subs[userID]; !ok {
		b.subs[userID] = make(map[*memorySubscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	return sub, nil
}

// Subscribers возвращает число активных подписок пользователя.
func (b *MemoryBroker) Subscribers(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for userID, subs := range b.subs {
		for sub := range subs {
			sub.done = true
			close(sub.ch)
		}
		delete(b.subs, userID)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.done {
		return
	}
	sub.done = true
	close(sub.ch)
	if subs, ok := b.subs[sub.userID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.userID)
		}
	}
}

type memorySubscription struct {
	broker *MemoryBroker
	userID uuid.UUID
	ch     chan Event
	// done защищён broker.mu.
	done bool
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	return nil
}
