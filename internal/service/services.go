package service

import (
	"task_manager/internal/config"
	"task_manager/internal/repository"
	"task_manager/internal/ws"
	"task_manager/pkg/logger"
)

type Services struct {
	Auth       AuthService
	Chat       ChatService
	Membership MembershipService
	Notify     NotifyService
	GroupLog   GroupLogService
	Task       TaskService
	Media      MediaService
	RateLimit  RateLimitService
}

func NewServices(repos *repository.Repositories, hub *ws.Hub, cfg *config.Config, log logger.Logger) *Services {
	media := NewMediaService(cfg.Media, log)
	notify := NewNotifyService(repos.Pool, repos.Notification, hub, cfg.Notify, log)
	groupLogger := NewGroupLogger(repos.GroupLog)

	return &Services{
		Auth:       NewAuthService(repos.User, cfg.JWT, log),
		Chat:       NewChatService(repos.Pool, repos.Pool, repos.Chat, repos.Task, repos.User, media, log),
		Membership: NewMembershipService(repos.Pool, repos.Group, repos.User, repos.Notification, repos.MemberCache, groupLogger, notify, log),
		Notify:     notify,
		GroupLog:   NewGroupLogService(repos.GroupLog, repos.Group, log),
		Task:       NewTaskService(repos.Pool, repos.Task, repos.Group, repos.MemberCache, notify, log),
		Media:      media,
		RateLimit:  NewRateLimitService(repos.RateLimit, log),
	}
}
