package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"task_manager/internal/domain"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

type TaskRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type taskRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewTaskRepository(db *pgxpool.Pool, log logger.Logger) TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, group_id, owner_id, project_id, name, description, status, deadline, created_at
		FROM tasks
		WHERE id = $1
	`

	task := &domain.Task{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID, &task.GroupID, &task.OwnerID, &task.ProjectID,
		&task.Name, &task.Description, &task.Status, &task.Deadline, &task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTaskNotFound
		}
		r.log.Error("Failed to get task", "error", err)
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check task existence", "error", err)
		return false, err
	}
	return exists, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		r.log.Error("Failed to update task status", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}
