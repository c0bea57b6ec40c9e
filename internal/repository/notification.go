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

type NotificationRepository interface {
	Create(ctx context.Context, q Querier, n *domain.Notification) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	// Delete возвращает ErrNotificationNotFound, если строки уже нет —
	// так второе разрешение одного приглашения получает NotFound.
	Delete(ctx context.Context, q Querier, id int64) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id int64, userID uuid.UUID) error
}

type notificationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, log logger.Logger) NotificationRepository {
	return &notificationRepository{db: db, log: log}
}

func (r *notificationRepository) Create(ctx context.Context, q Querier, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, notify_type, message, data, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := q.QueryRow(ctx, query,
		n.UserID, n.Type, n.Message, n.Data, n.IsRead, now, now,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create notification", "error", err)
		return err
	}

	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `
		SELECT id, user_id, notify_type, message, data, is_read, created_at, updated_at
		FROM notifications
		WHERE id = $1
	`

	n := &domain.Notification{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Message, &n.Data, &n.IsRead, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		r.log.Error("Failed to get notification", "error", err)
		return nil, err
	}

	return n, nil
}

func (r *notificationRepository) Delete(ctx context.Context, q Querier, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete notification", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, notify_type, message, data, is_read, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list notifications", "error", err)
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Data, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`

	tag, err := r.db.Exec(ctx, query, id, userID, time.Now())
	if err != nil {
		r.log.Error("Failed to mark notification read", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}
