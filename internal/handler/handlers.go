package handler

import (
	"task_manager/internal/config"
	"task_manager/internal/service"
	"task_manager/internal/ws"
	"task_manager/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Chat         *ChatHandler
	Group        *GroupHandler
	GroupLog     *GroupLogHandler
	Notification *NotificationHandler
	Task         *TaskHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *ws.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg),
		Chat:         NewChatHandler(services.Chat, log),
		Group:        NewGroupHandler(services.Membership, log),
		GroupLog:     NewGroupLogHandler(services.GroupLog, log),
		Notification: NewNotificationHandler(services.Notify, log),
		Task:         NewTaskHandler(services.Task, log),
		WebSocket:    NewWebSocketHandler(services.Auth, services.Chat, hub, cfg.WS, log),
	}
}
