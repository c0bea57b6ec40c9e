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

type ChatRepository interface {
	CreateMessage(ctx context.Context, q Querier, message *domain.ChatMessage) error
	GetMessageByID(ctx context.Context, messageID int64) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error)
	CreateAttachment(ctx context.Context, q Querier, attachment *domain.ChatAttachment) error
	GetAttachments(ctx context.Context, messageID int64) ([]*domain.ChatAttachment, error)
	GetAttachmentsForMessages(ctx context.Context, messageIDs []int64) (map[int64][]*domain.ChatAttachment, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) CreateMessage(ctx context.Context, q Querier, message *domain.ChatMessage) error {
	query := `
		INSERT INTO task_chat_messages (task_id, user_id, text, reply_to_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := q.QueryRow(ctx, query,
		message.TaskID, message.UserID, message.Text, message.ReplyToID, now, now,
	).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create chat message", "error", err)
		return err
	}

	return nil
}

func (r *chatRepository) GetMessageByID(ctx context.Context, messageID int64) (*domain.ChatMessage, error) {
	query := `
		SELECT id, task_id, user_id, text, reply_to_id, created_at, updated_at
		FROM task_chat_messages
		WHERE id = $1
	`

	message := &domain.ChatMessage{}
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID, &message.TaskID, &message.UserID, &message.Text,
		&message.ReplyToID, &message.CreatedAt, &message.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get chat message", "error", err)
		return nil, err
	}

	return message, nil
}

func (r *chatRepository) ListMessages(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, task_id, user_id, text, reply_to_id, created_at, updated_at
		FROM task_chat_messages
		WHERE task_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, taskID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list chat messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		message := &domain.ChatMessage{}
		err := rows.Scan(
			&message.ID, &message.TaskID, &message.UserID, &message.Text,
			&message.ReplyToID, &message.CreatedAt, &message.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *chatRepository) CreateAttachment(ctx context.Context, q Querier, attachment *domain.ChatAttachment) error {
	query := `
		INSERT INTO task_chat_attachments (message_id, title, image_path, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		attachment.MessageID, attachment.Title, attachment.ImagePath, time.Now(),
	).Scan(&attachment.ID, &attachment.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create chat attachment", "error", err)
		return err
	}

	return nil
}

func (r *chatRepository) GetAttachments(ctx context.Context, messageID int64) ([]*domain.ChatAttachment, error) {
	byMessage, err := r.GetAttachmentsForMessages(ctx, []int64{messageID})
	if err != nil {
		return nil, err
	}
	return byMessage[messageID], nil
}

func (r *chatRepository) GetAttachmentsForMessages(ctx context.Context, messageIDs []int64) (map[int64][]*domain.ChatAttachment, error) {
	query := `
		SELECT id, message_id, title, image_path, created_at
		FROM task_chat_attachments
		WHERE message_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, messageIDs)
	if err != nil {
		r.log.Error("Failed to get chat attachments", "error", err)
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]*domain.ChatAttachment)
	for rows.Next() {
		a := &domain.ChatAttachment{}
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Title, &a.ImagePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		result[a.MessageID] = append(result[a.MessageID], a)
	}

	return result, rows.Err()
}
