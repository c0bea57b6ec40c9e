package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)

// TxBeginner открывает транзакции workflow. *pgxpool.Pool в проде.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MembershipService — workflow членства. Каждая операция атомарна: мутация
// members, запись аудита и создание/удаление уведомления коммитятся вместе
// или не коммитятся вовсе.
type MembershipService interface {
	Invite(ctx context.Context, groupID uuid.UUID, inviter *domain.User, targetUserID uuid.UUID) error
	ResolveInvite(ctx context.Context, notificationID int64, actor *domain.User, decision string) error
	Kick(ctx context.Context, groupID uuid.UUID, actor *domain.User, targetUserID uuid.UUID) error
}

type membershipService struct {
	db          TxBeginner
	groupRepo   repository.GroupRepository
	userRepo    repository.UserRepository
	notifyRepo  repository.NotificationRepository
	memberCache repository.MemberCacheRepository
	groupLogger *GroupLogger
	dispatcher  NotifyService
	log         logger.Logger
}

func NewMembershipService(
	db TxBeginner,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	notifyRepo repository.NotificationRepository,
	memberCache repository.MemberCacheRepository,
	groupLogger *GroupLogger,
	dispatcher NotifyService,
	log logger.Logger,
) MembershipService {
	return &membershipService{
		db:          db,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		notifyRepo:  notifyRepo,
		memberCache: memberCache,
		groupLogger: groupLogger,
		dispatcher:  dispatcher,
		log:         log,
	}
}

func (s *membershipService) Invite(ctx context.Context, groupID uuid.UUID, inviter *domain.User, targetUserID uuid.UUID) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	target, err := s.userRepo.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	if group.HasMember(targetUserID) {
		return apperrors.ErrAlreadyMember
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	notification := &domain.Notification{
		UserID:  target.ID,
		Type:    domain.NotifyTypeInvite,
		Message: fmt.Sprintf("%s wants to add you to a group", inviter.Username),
		Data:    map[string]interface{}{"group_id": group.ID.String()},
	}
	if err := s.notifyRepo.Create(ctx, tx, notification); err != nil {
		return err
	}

	if _, err := s.groupLogger.InviteMember(ctx, tx, group, target, inviter); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Строка уведомления уже закоммичена, пуш — best effort
	s.dispatcher.Push(target.ID, "You have been invited to join a group")

	return nil
}

func (s *membershipService) ResolveInvite(ctx context.Context, notificationID int64, actor *domain.User, decision string) error {
	notification, err := s.notifyRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}

	if notification.UserID != actor.ID {
		return apperrors.ErrForbidden
	}
	if notification.Type != domain.NotifyTypeInvite {
		return apperrors.ErrBadRequest
	}

	groupID, ok := notification.GroupID()
	if !ok {
		return apperrors.ErrBadRequest
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	group, err := s.groupRepo.LockForUpdate(ctx, tx, groupID)
	if err != nil {
		return err
	}

	switch decision {
	case DecisionAccept:
		if err := s.groupRepo.AddMember(ctx, tx, group.ID, actor.ID); err != nil {
			return err
		}
		if _, err := s.groupLogger.AddMember(ctx, tx, group, actor); err != nil {
			return err
		}
	case DecisionDecline:
		if _, err := s.groupLogger.InviteDeflected(ctx, tx, group, actor.Username); err != nil {
			return err
		}
	default:
		return apperrors.ErrBadRequest
	}

	// Удаление внутри транзакции даёт at-most-once: проигравший из двух
	// конкурентных разрешений получит NotFound и откат.
	if err := s.notifyRepo.Delete(ctx, tx, notification.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if decision == DecisionAccept {
		if err := s.memberCache.Invalidate(ctx, group.ID); err != nil {
			s.log.Warn("Failed to invalidate member cache", "group_id", group.ID, "error", err)
		}
	}

	return nil
}

func (s *membershipService) Kick(ctx context.Context, groupID uuid.UUID, actor *domain.User, targetUserID uuid.UUID) error {
	target, err := s.userRepo.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	group, err := s.groupRepo.LockForUpdate(ctx, tx, groupID)
	if err != nil {
		return err
	}

	if group.OwnerID != actor.ID {
		return apperrors.ErrForbidden
	}
	if !group.HasMember(targetUserID) {
		return apperrors.ErrNotFound
	}

	if err := s.groupRepo.RemoveMember(ctx, tx, group.ID, targetUserID); err != nil {
		return err
	}
	if _, err := s.groupLogger.KickMember(ctx, tx, group, target, actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := s.memberCache.Invalidate(ctx, group.ID); err != nil {
		s.log.Warn("Failed to invalidate member cache", "group_id", group.ID, "error", err)
	}

	s.dispatcher.Push(target.ID, fmt.Sprintf("You have been removed from %s", group.Name))

	return nil
}
