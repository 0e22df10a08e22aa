package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
	"github.com/ignatzorin/freelance-marketplace/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub          *ws.Hub
	tokenManager *service.TokenManager
	upgrader     websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager, allowedOrigins []string) *WSHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WSHandler{
		hub:          hub,
		tokenManager: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	userID, _, err := h.tokenManager.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	// Upgrade сам отвечает клиенту при ошибке рукопожатия.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
