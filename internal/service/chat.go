package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	"task_manager/internal/ws"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

// ChatService реализует ws.ChatStore плюс REST-чтение истории.
type ChatService interface {
	CreateMessage(ctx context.Context, taskID uuid.UUID, sender *domain.User, text string, answerTo *int64) (*domain.ChatMessage, error)
	CompleteMessage(ctx context.Context, messageID int64, files []ws.IncomingFile) (*domain.ChatMessageView, error)
	ListMessages(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]*domain.ChatMessageView, error)
}

type chatService struct {
	db       TxBeginner
	q        repository.Querier
	chatRepo repository.ChatRepository
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	media    MediaService
	log      logger.Logger
}

func NewChatService(
	db TxBeginner,
	q repository.Querier,
	chatRepo repository.ChatRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	media MediaService,
	log logger.Logger,
) ChatService {
	return &chatService{
		db:       db,
		q:        q,
		chatRepo: chatRepo,
		taskRepo: taskRepo,
		userRepo: userRepo,
		media:    media,
		log:      log,
	}
}

func (s *chatService) CreateMessage(ctx context.Context, taskID uuid.UUID, sender *domain.User, text string, answerTo *int64) (*domain.ChatMessage, error) {
	exists, err := s.taskRepo.Exists(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTaskNotFound
	}

	message := &domain.ChatMessage{
		TaskID:    taskID,
		UserID:    sender.ID,
		Text:      text,
		ReplyToID: answerTo,
	}

	if err := s.chatRepo.CreateMessage(ctx, s.q, message); err != nil {
		return nil, err
	}

	return message, nil
}

func (s *chatService) CompleteMessage(ctx context.Context, messageID int64, files []ws.IncomingFile) (*domain.ChatMessageView, error) {
	message, err := s.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if len(files) > 0 {
		// Блобы пишем до транзакции: файл без строки в БД — мусор на диске,
		// строка без файла — битая ссылка. Выбираем первое.
		paths := make([]string, 0, len(files))
		for _, f := range files {
			path, err := s.media.SaveAttachment(ctx, f.Name, f.Data)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback(ctx)

		for i, f := range files {
			attachment := &domain.ChatAttachment{
				MessageID: messageID,
				Title:     f.Name,
				ImagePath: paths[i],
			}
			if err := s.chatRepo.CreateAttachment(ctx, tx, attachment); err != nil {
				return nil, err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
	}

	return s.hydrate(ctx, message)
}

func (s *chatService) ListMessages(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]*domain.ChatMessageView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.chatRepo.ListMessages(ctx, taskID, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return []*domain.ChatMessageView{}, nil
	}

	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	attachments, err := s.chatRepo.GetAttachmentsForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make(map[uuid.UUID]*domain.User)
	views := make([]*domain.ChatMessageView, 0, len(messages))
	for _, m := range messages {
		user, ok := users[m.UserID]
		if !ok {
			user, err = s.userRepo.GetByID(ctx, m.UserID)
			if err != nil {
				return nil, err
			}
			users[m.UserID] = user
		}

		view, err := s.buildView(ctx, m, user, attachments[m.ID])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

func (s *chatService) hydrate(ctx context.Context, message *domain.ChatMessage) (*domain.ChatMessageView, error) {
	user, err := s.userRepo.GetByID(ctx, message.UserID)
	if err != nil {
		return nil, err
	}

	attachments, err := s.chatRepo.GetAttachments(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	return s.buildView(ctx, message, user, attachments)
}

func (s *chatService) buildView(ctx context.Context, message *domain.ChatMessage, user *domain.User, attachments []*domain.ChatAttachment) (*domain.ChatMessageView, error) {
	view := &domain.ChatMessageView{
		ID:        message.ID,
		TaskID:    message.TaskID,
		Text:      message.Text,
		Message:   message.Text,
		User:      user,
		ImageURLs: make([]domain.AttachmentURL, 0, len(attachments)),
		CreatedAt: message.CreatedAt,
	}

	for _, a := range attachments {
		view.ImageURLs = append(view.ImageURLs, domain.AttachmentURL{
			ID:       a.ID,
			URL:      s.media.URL(a.ImagePath),
			Filename: a.Title,
		})
	}

	if message.ReplyToID != nil {
		replied, err := s.chatRepo.GetMessageByID(ctx, *message.ReplyToID)
		switch {
		case err == nil:
			view.AnswerTo = &domain.ReplyPreview{ID: replied.ID, Text: replied.Text}
		case errors.Is(err, apperrors.ErrNotFound):
			// Цитируемое сообщение удалили — отдаём без превью
		default:
			return nil, err
		}
	}

	return view, nil
}
