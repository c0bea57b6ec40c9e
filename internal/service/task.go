package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

// TaskService — смена статуса задачи с веером уведомлений по группе.
type TaskService interface {
	UpdateStatus(ctx context.Context, taskID uuid.UUID, actor *domain.User, newStatus string) (*domain.Task, error)
}

type taskService struct {
	db          repository.Querier
	taskRepo    repository.TaskRepository
	groupRepo   repository.GroupRepository
	memberCache repository.MemberCacheRepository
	dispatcher  NotifyService
	log         logger.Logger
}

func NewTaskService(
	db repository.Querier,
	taskRepo repository.TaskRepository,
	groupRepo repository.GroupRepository,
	memberCache repository.MemberCacheRepository,
	dispatcher NotifyService,
	log logger.Logger,
) TaskService {
	return &taskService{
		db:          db,
		taskRepo:    taskRepo,
		groupRepo:   groupRepo,
		memberCache: memberCache,
		dispatcher:  dispatcher,
		log:         log,
	}
}

func (s *taskService) UpdateStatus(ctx context.Context, taskID uuid.UUID, actor *domain.User, newStatus string) (*domain.Task, error) {
	switch newStatus {
	case domain.TaskStatusNone, domain.TaskStatusBase, domain.TaskStatusUrgent:
	default:
		return nil, apperrors.ErrBadRequest
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	members, err := s.groupMembers(ctx, task.GroupID)
	if err != nil {
		return nil, err
	}

	isMember := false
	for _, id := range members {
		if id == actor.ID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, apperrors.ErrForbidden
	}

	if task.Status == newStatus {
		return task, nil
	}

	if err := s.taskRepo.UpdateStatus(ctx, taskID, newStatus); err != nil {
		return nil, err
	}
	task.Status = newStatus

	message := fmt.Sprintf("task: %s: Status changed in %s", task.Name, newStatus)
	data := map[string]interface{}{
		"task_id": task.ID.String(),
		"status":  newStatus,
	}
	if err := s.dispatcher.NotifyUsers(ctx, members, domain.NotifyTypeTaskUpdate, message, data); err != nil {
		// Статус уже записан, веер — best effort
		s.log.Error("Failed to fan out task status notifications", "task_id", taskID, "error", err)
	}

	return task, nil
}

func (s *taskService) groupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	members, found, err := s.memberCache.GetMembers(ctx, groupID)
	if err != nil {
		s.log.Warn("Member cache read failed, falling back to db", "group_id", groupID, "error", err)
	}
	if found {
		return members, nil
	}

	members, err = s.groupRepo.GetMemberIDs(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}

	if err := s.memberCache.SetMembers(ctx, groupID, members); err != nil {
		s.log.Warn("Failed to populate member cache", "group_id", groupID, "error", err)
	}

	return members, nil
}
