package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/goroutine"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
	"github.com/ignatzorin/freelance-marketplace/internal/pubsub"
)

// Hub держит локальные соединения и подписку брокера на каждого подключённого пользователя.
type Hub struct {
	broker pubsub.Broker
	// mu нужен только для чтения снаружи цикла Run, изменения идут из Run.
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	subs       map[uuid.UUID]pubsub.Subscription
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	ctx        context.Context
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context, broker pubsub.Broker) *Hub {
	return &Hub{
		broker:     broker,
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		subs:       make(map[uuid.UUID]pubsub.Subscription),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 32),
		ctx:        ctx,
	}
}

// Run запускает главный цикл хаба. Состояние хаба меняется только здесь.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case d := <-h.deliver:
			h.send(d.userID, d.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// PublishToUser отправляет событие всем соединениям пользователя на любом экземпляре сервиса.
func (h *Hub) PublishToUser(ctx context.Context, userID uuid.UUID, event string, data any) {
	ev, err := pubsub.NewEvent(event, data)
	if err == nil {
		err = h.broker.Publish(ctx, userID, ev)
	}
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "event": event, "error": err}).
			Warn("ws: не удалось опубликовать событие")
	}
}

// Connections возвращает число локальных соединений пользователя.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		sub, err := h.broker.Subscribe(h.ctx, client.userID)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"user_id": client.userID, "error": err}).
				Error("ws: не удалось подписаться на события пользователя")
			client.closeSend()
			return
		}
		h.subs[client.userID] = sub
		h.clients[client.userID] = make(map[*Client]struct{})
		userID := client.userID
		goroutine.SafeGo(func() { h.forward(userID, sub) })
	}
	h.clients[client.userID][client] = struct{}{}
	metrics.WSConnections.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closeSend()
	metrics.WSConnections.Dec()

	if len(clients) == 0 {
		delete(h.clients, client.userID)
		if sub, ok := h.subs[client.userID]; ok {
			_ = sub.Close()
			delete(h.subs, client.userID)
		}
	}
}

// forward переносит события подписки в цикл хаба до закрытия подписки.
func (h *Hub) forward(userID uuid.UUID, sub pubsub.Subscription) {
	for ev := range sub.Events() {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case h.deliver <- delivery{userID: userID, payload: payload}:
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	var slow []*Client
	h.mu.RLock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logger.Log.WithField("user_id", userID).Warn("ws: клиент не успевает читать, соединение закрыто")
		h.removeClient(client)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			client.closeSend()
			metrics.WSConnections.Dec()
		}
		delete(h.clients, userID)
	}
	for userID, sub := range h.subs {
		_ = sub.Close()
		delete(h.subs, userID)
	}
}
