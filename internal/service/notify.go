package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"task_manager/internal/config"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	"task_manager/internal/ws"
	"task_manager/pkg/logger"
)

// Broadcaster — то, что диспетчеру нужно от реестра соединений.
type Broadcaster interface {
	Broadcast(key string, payload interface{})
}

type pushFrame struct {
	Message string `json:"message"`
}

// NotifyService — диспетчер уведомлений: сначала строка в БД, потом
// best-effort push в живой канал. Ошибка push никогда не откатывает запись.
type NotifyService interface {
	Notify(ctx context.Context, userID uuid.UUID, notifyType, message string, data map[string]interface{}) error
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, notifyType, message string, data map[string]interface{}) error
	Push(userID uuid.UUID, message string)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, userID uuid.UUID, notificationID int64) error
	Stop()
}

type notifyJob struct {
	userID     uuid.UUID
	notifyType string
	message    string
	data       map[string]interface{}
}

type notifyService struct {
	db         repository.Querier
	notifyRepo repository.NotificationRepository
	hub        Broadcaster
	mode       string
	log        logger.Logger

	queue chan notifyJob
	wg    sync.WaitGroup
	once  sync.Once
}

func NewNotifyService(db repository.Querier, notifyRepo repository.NotificationRepository, hub Broadcaster, cfg config.NotifyConfig, log logger.Logger) NotifyService {
	s := &notifyService{
		db:         db,
		notifyRepo: notifyRepo,
		hub:        hub,
		mode:       cfg.Mode,
		log:        log,
	}

	if cfg.Mode == config.NotifyModeQueue {
		s.queue = make(chan notifyJob, cfg.QueueSize)
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

func (s *notifyService) Notify(ctx context.Context, userID uuid.UUID, notifyType, message string, data map[string]interface{}) error {
	job := notifyJob{userID: userID, notifyType: notifyType, message: message, data: data}

	if s.mode == config.NotifyModeQueue {
		select {
		case s.queue <- job:
			return nil
		default:
			// Очередь забита — доставляем на месте, уведомление терять нельзя
			s.log.Warn("Notify queue is full, delivering inline", "user_id", userID)
		}
	}

	return s.deliver(ctx, job)
}

func (s *notifyService) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, notifyType, message string, data map[string]interface{}) error {
	for _, id := range userIDs {
		if err := s.Notify(ctx, id, notifyType, message, data); err != nil {
			return err
		}
	}
	return nil
}

// Push — только живая доставка, без персистенции. Для событий, чья строка
// уже записана workflow-транзакцией.
func (s *notifyService) Push(userID uuid.UUID, message string) {
	s.hub.Broadcast(ws.NotifyKey(userID), pushFrame{Message: message})
}

func (s *notifyService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifyRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *notifyService) MarkRead(ctx context.Context, userID uuid.UUID, notificationID int64) error {
	return s.notifyRepo.MarkRead(ctx, notificationID, userID)
}

func (s *notifyService) Stop() {
	s.once.Do(func() {
		if s.queue != nil {
			close(s.queue)
		}
	})
	s.wg.Wait()
}

func (s *notifyService) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.deliver(ctx, job); err != nil {
			s.log.Error("Failed to deliver queued notification", "user_id", job.userID, "error", err)
		}
		cancel()
	}
}

func (s *notifyService) deliver(ctx context.Context, job notifyJob) error {
	notification := &domain.Notification{
		UserID:  job.userID,
		Type:    job.notifyType,
		Message: job.message,
		Data:    job.data,
	}

	if err := s.notifyRepo.Create(ctx, s.db, notification); err != nil {
		return err
	}

	s.Push(job.userID, job.message)
	return nil
}
