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

// GroupLogger собирает записи аудита членства. Каждый метод — одна вставка,
// выполняется внутри транзакции вызывающего workflow.
type GroupLogger struct {
	logRepo repository.GroupLogRepository
}

func NewGroupLogger(logRepo repository.GroupLogRepository) *GroupLogger {
	return &GroupLogger{logRepo: logRepo}
}

func (gl *GroupLogger) InviteMember(ctx context.Context, q repository.Querier, group *domain.Group, target, actor *domain.User) (*domain.GroupLog, error) {
	return gl.create(ctx, q, &domain.GroupLog{
		GroupID:      group.ID,
		Event:        fmt.Sprintf("%s invite %s", actor.Username, target.Username),
		EventType:    domain.EventTypeInviteMember,
		AnchorUserID: &actor.ID,
		Data:         map[string]interface{}{"invited_user": target.Username},
	})
}

// AddMember: якорь — сам вступивший, членство изменилось его действием.
func (gl *GroupLogger) AddMember(ctx context.Context, q repository.Querier, group *domain.Group, invited *domain.User) (*domain.GroupLog, error) {
	return gl.create(ctx, q, &domain.GroupLog{
		GroupID:      group.ID,
		Event:        fmt.Sprintf("%s joined the group", invited.Username),
		EventType:    domain.EventTypeAddMember,
		AnchorUserID: &invited.ID,
		Data:         map[string]interface{}{"invited_user": invited.Username},
	})
}

func (gl *GroupLogger) InviteDeflected(ctx context.Context, q repository.Querier, group *domain.Group, targetUsername string) (*domain.GroupLog, error) {
	return gl.create(ctx, q, &domain.GroupLog{
		GroupID:   group.ID,
		Event:     fmt.Sprintf("%s declined the invitation", targetUsername),
		EventType: domain.EventTypeInviteDeflected,
		Data:      map[string]interface{}{"target_user": targetUsername},
	})
}

func (gl *GroupLogger) KickMember(ctx context.Context, q repository.Querier, group *domain.Group, kicked, actor *domain.User) (*domain.GroupLog, error) {
	return gl.create(ctx, q, &domain.GroupLog{
		GroupID:      group.ID,
		Event:        fmt.Sprintf("%s kicked %s", actor.Username, kicked.Username),
		EventType:    domain.EventTypeKickedMember,
		AnchorUserID: &actor.ID,
		Data:         map[string]interface{}{"kicked_user": kicked.Username},
	})
}

func (gl *GroupLogger) create(ctx context.Context, q repository.Querier, entry *domain.GroupLog) (*domain.GroupLog, error) {
	if err := gl.logRepo.Create(ctx, q, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GroupLogService — чтение аудита. Журнал видит только владелец группы.
type GroupLogService interface {
	List(ctx context.Context, groupID uuid.UUID, actor *domain.User, filter repository.GroupLogFilter) ([]*domain.GroupLog, error)
}

type groupLogService struct {
	logRepo   repository.GroupLogRepository
	groupRepo repository.GroupRepository
	log       logger.Logger
}

func NewGroupLogService(logRepo repository.GroupLogRepository, groupRepo repository.GroupRepository, log logger.Logger) GroupLogService {
	return &groupLogService{
		logRepo:   logRepo,
		groupRepo: groupRepo,
		log:       log,
	}
}

func (s *groupLogService) List(ctx context.Context, groupID uuid.UUID, actor *domain.User, filter repository.GroupLogFilter) ([]*domain.GroupLog, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.OwnerID != actor.ID {
		return nil, apperrors.ErrForbidden
	}

	return s.logRepo.List(ctx, groupID, filter)
}
