package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"task_manager/internal/config"
	"task_manager/internal/domain"
	"task_manager/internal/service"
	"task_manager/internal/ws"
	"task_manager/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	authService service.AuthService
	chatService service.ChatService
	hub         *ws.Hub
	wsCfg       config.WSConfig
	log         logger.Logger
}

func NewWebSocketHandler(authService service.AuthService, chatService service.ChatService, hub *ws.Hub, wsCfg config.WSConfig, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		chatService: chatService,
		hub:         hub,
		wsCfg:       wsCfg,
		log:         log,
	}
}

// HandleChat поднимает websocket чата задачи и отдаёт соединение сессии.
// Токен берём из query: браузерный WebSocket не умеет ставить заголовки.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task ID"})
		return
	}

	user, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	if h.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.wsCfg.MaxMessageSize)
	}

	sc := ws.NewSocketConn(conn)
	session := ws.NewSession(sc, h.hub, h.chatService, user, taskID, h.wsCfg.PendingTTL, h.log)
	session.Run(c.Request.Context())
}

// HandleNotify — персональный канал уведомлений. Соединение только слушает:
// входящие текстовые кадры игнорируются, чтение нужно для детекта разрыва.
func (h *WebSocketHandler) HandleNotify(c *gin.Context) {
	user, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	sc := ws.NewSocketConn(conn)
	h.hub.Join(ws.NotifyKey(user.ID), sc)
	h.log.Debug("Notify channel opened", "user_id", user.ID)

	for {
		if _, _, err := sc.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Drop(sc)
	h.log.Debug("Notify channel closed", "user_id", user.ID)
}

func (h *WebSocketHandler) authenticate(c *gin.Context) (*domain.User, error) {
	token := c.Query("token")
	if token == "" {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	return h.authService.ValidateToken(c.Request.Context(), token)
}
