package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"task_manager/internal/domain"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

type GroupRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	GetMemberIDs(ctx context.Context, q Querier, groupID uuid.UUID) ([]uuid.UUID, error)
	// LockForUpdate берёт строчную блокировку группы — сериализует
	// конкурентные accept/kick по одной группе.
	LockForUpdate(ctx context.Context, q Querier, groupID uuid.UUID) (*domain.Group, error)
	AddMember(ctx context.Context, q Querier, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, q Querier, groupID, userID uuid.UUID) error
}

type groupRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewGroupRepository(db *pgxpool.Pool, log logger.Logger) GroupRepository {
	return &groupRepository{db: db, log: log}
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	group := &domain.Group{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&group.ID, &group.OwnerID, &group.Name, &group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrGroupNotFound
		}
		r.log.Error("Failed to get group", "error", err)
		return nil, err
	}

	group.Members, err = r.GetMemberIDs(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	return group, nil
}

func (r *groupRepository) GetMemberIDs(ctx context.Context, q Querier, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM group_members WHERE group_id = $1`

	rows, err := q.Query(ctx, query, groupID)
	if err != nil {
		r.log.Error("Failed to get group members", "error", err)
		return nil, err
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}

	return members, rows.Err()
}

func (r *groupRepository) LockForUpdate(ctx context.Context, q Querier, groupID uuid.UUID) (*domain.Group, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM groups
		WHERE id = $1
		FOR UPDATE
	`

	group := &domain.Group{}
	err := q.QueryRow(ctx, query, groupID).Scan(
		&group.ID, &group.OwnerID, &group.Name, &group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrGroupNotFound
		}
		r.log.Error("Failed to lock group", "error", err)
		return nil, err
	}

	group.Members, err = r.GetMemberIDs(ctx, q, groupID)
	if err != nil {
		return nil, err
	}

	return group, nil
}

func (r *groupRepository) AddMember(ctx context.Context, q Querier, groupID, userID uuid.UUID) error {
	query := `
		INSERT INTO group_members (group_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`

	if _, err := q.Exec(ctx, query, groupID, userID, time.Now()); err != nil {
		r.log.Error("Failed to add group member", "error", err)
		return err
	}

	_, err := q.Exec(ctx, `UPDATE groups SET updated_at = $2 WHERE id = $1`, groupID, time.Now())
	return err
}

func (r *groupRepository) RemoveMember(ctx context.Context, q Querier, groupID, userID uuid.UUID) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`

	if _, err := q.Exec(ctx, query, groupID, userID); err != nil {
		r.log.Error("Failed to remove group member", "error", err)
		return err
	}

	_, err := q.Exec(ctx, `UPDATE groups SET updated_at = $2 WHERE id = $1`, groupID, time.Now())
	return err
}
