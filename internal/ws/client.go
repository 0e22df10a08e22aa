package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client представляет одно подключение WebSocket.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	userID   uuid.UUID
	send     chan []byte
	sendOnce sync.Once
}

// NewClient создаёт нового клиента.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, 16),
	}
}

// Run обслуживает соединение до его закрытия.
func (c *Client) Run(ctx context.Context) {
	go c.writePumpSafe()
	c.readPump(ctx)
}

func (c *Client) writePumpSafe() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("ws: паника в writePump: %v", r)
			c.conn.Close()
		}
	}()
	c.writePump()
}

// closeSend вызывается только хабом.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("ws: паника в readPump: %v", r)
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	// Клиент только получает события, входящие кадры нужны для ping/pong и закрытия.
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.WithField("user_id", c.userID).Debugf("ws: соединение прервано: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
