package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID        int64     `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	ReplyToID *int64    `json:"reply_to_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatAttachment struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	Title     string    `json:"title"`
	ImagePath string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyPreview — краткая форма сообщения, на которое отвечают.
type ReplyPreview struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type AttachmentURL struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// ChatMessageView — гидратированное сообщение для рассылки и REST-выдачи:
// автор, ссылки на вложения и превью ответа уже подтянуты.
type ChatMessageView struct {
	ID        int64           `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	Text      string          `json:"text"`
	Message   string          `json:"message"`
	User      *User           `json:"user"`
	ImageURLs []AttachmentURL `json:"images_urls"`
	AnswerTo  *ReplyPreview   `json:"answer_to,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
