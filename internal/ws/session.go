package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"task_manager/internal/domain"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

// IncomingFile — принятое вложение: имя из file_metadata плюс сырые байты.
type IncomingFile struct {
	Name string
	Data []byte
}

// ChatStore — персистентная часть протокола. Реализуется chat-сервисом.
type ChatStore interface {
	CreateMessage(ctx context.Context, taskID uuid.UUID, sender *domain.User, text string, answerTo *int64) (*domain.ChatMessage, error)
	CompleteMessage(ctx context.Context, messageID int64, files []IncomingFile) (*domain.ChatMessageView, error)
}

// wire — транспорт сессии. *SocketConn в проде, фейк в тестах.
type wire interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

const (
	frameMessageMetadata = "message_metadata"
	frameFileMetadata    = "file_metadata"
	frameMessageComplete = "message_complete"
)

type clientFrame struct {
	Type            string `json:"type"`
	TaskID          string `json:"taskId"`
	Message         string `json:"message"`
	AnswerToMessage *int64 `json:"answerToMessage"`
	MessageID       int64  `json:"messageId"`
	FileName        string `json:"fileName"`
	FilesCount      int    `json:"filesCount"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type createdFrame struct {
	Type      string `json:"type"`
	MessageID int64  `json:"messageId"`
}

type broadcastFrame struct {
	Message *domain.ChatMessageView `json:"message"`
	User    *domain.User            `json:"user"`
}

type fileSlot struct {
	name string
	data []byte
}

// pendingMessage — буфер вложений одного незавершённого сообщения.
type pendingMessage struct {
	taskID    uuid.UUID
	expected  int
	slots     []*fileSlot
	updatedAt time.Time
}

// Session — state machine чат-соединения. Кадры обрабатываются строго в
// порядке прихода; буферы вложений живут только внутри этой сессии, так что
// параллельные соединения друг другу не мешают.
type Session struct {
	conn       wire
	hub        *Hub
	store      ChatStore
	user       *domain.User
	roomKey    string
	pendingTTL time.Duration
	log        logger.Logger

	mu      sync.Mutex
	pending map[int64]*pendingMessage
	order   []int64 // порядок создания для FIFO-сопоставления бинарных кадров

	wg   sync.WaitGroup
	done chan struct{}
}

func NewSession(conn *SocketConn, hub *Hub, store ChatStore, user *domain.User, taskID uuid.UUID, pendingTTL time.Duration, log logger.Logger) *Session {
	return &Session{
		conn:       conn,
		hub:        hub,
		store:      store,
		user:       user,
		roomKey:    TaskChatKey(taskID),
		pendingTTL: pendingTTL,
		log:        log,
		pending:    make(map[int64]*pendingMessage),
		done:       make(chan struct{}),
	}
}

// Run читает кадры до разрыва соединения. При выходе соединение удаляется
// из реестра, незавершённые буферы отбрасываются (сообщение-сирота без
// вложений остаётся в БД — вложения опциональны).
func (s *Session) Run(ctx context.Context) {
	s.hub.Join(s.roomKey, s.conn)

	if s.pendingTTL > 0 {
		s.wg.Add(1)
		go s.janitor()
	}

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinary(data)
		case websocket.TextMessage:
			s.handleText(ctx, data)
		}
	}

	close(s.done)
	s.hub.Drop(s.conn)
	s.wg.Wait()
}

func (s *Session) handleText(ctx context.Context, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.sendError("invalid frame")
		return
	}

	switch frame.Type {
	case frameMessageMetadata:
		s.handleMetadata(ctx, &frame)
	case frameFileMetadata:
		s.handleFileMetadata(&frame)
	case frameMessageComplete:
		s.handleComplete(&frame)
	default:
		s.sendError("unknown frame type")
	}
}

func (s *Session) handleMetadata(ctx context.Context, frame *clientFrame) {
	taskID, err := uuid.Parse(frame.TaskID)
	if err != nil {
		s.sendError("invalid taskId")
		return
	}

	msg, err := s.store.CreateMessage(ctx, taskID, s.user, frame.Message, frame.AnswerToMessage)
	if err != nil {
		if err == apperrors.ErrTaskNotFound {
			s.sendError("Not Task Chat model exists")
		} else {
			s.log.Error("Failed to create chat message", "task_id", taskID, "error", err)
			s.sendError("failed to save message")
		}
		return
	}

	s.mu.Lock()
	s.pending[msg.ID] = &pendingMessage{
		taskID:    taskID,
		updatedAt: time.Now(),
	}
	s.order = append(s.order, msg.ID)
	s.mu.Unlock()

	// Клиенту нужен id, чтобы адресовать file_metadata и message_complete.
	_ = s.conn.WriteJSON(createdFrame{Type: "message_created", MessageID: msg.ID})
}

func (s *Session) handleFileMetadata(frame *clientFrame) {
	s.mu.Lock()
	pm, ok := s.pending[frame.MessageID]
	if ok {
		pm.slots = append(pm.slots, &fileSlot{name: frame.FileName})
		pm.expected = frame.FilesCount
		pm.updatedAt = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		s.sendError("unknown message id")
	}
}

// handleBinary кладёт байты в самый старый незаполненный слот буфера.
// Сопоставление FIFO, без явного correlation id — унаследованное допущение
// протокола: клиент обязан слать бинарные кадры в порядке объявления.
func (s *Session) handleBinary(data []byte) {
	s.mu.Lock()
	var target *fileSlot
	for _, id := range s.order {
		pm, ok := s.pending[id]
		if !ok {
			continue
		}
		for _, slot := range pm.slots {
			if slot.data == nil {
				target = slot
				pm.updatedAt = time.Now()
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target != nil {
		buf := make([]byte, len(data))
		copy(buf, data)
		target.data = buf
	}
	s.mu.Unlock()

	if target == nil {
		s.sendError("no declared attachment slot for binary frame")
	}
}

func (s *Session) handleComplete(frame *clientFrame) {
	s.mu.Lock()
	pm, ok := s.pending[frame.MessageID]
	if ok {
		delete(s.pending, frame.MessageID)
		s.removeFromOrder(frame.MessageID)
	}
	s.mu.Unlock()

	if !ok {
		s.sendError("unknown message id")
		return
	}

	var files []IncomingFile
	for _, slot := range pm.slots {
		if slot.data != nil {
			files = append(files, IncomingFile{Name: slot.name, Data: slot.data})
		}
	}

	// Запись блобов на диск — вне цикла чтения кадров.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		view, err := s.store.CompleteMessage(ctx, frame.MessageID, files)
		if err != nil {
			s.log.Error("Failed to complete chat message", "message_id", frame.MessageID, "error", err)
			s.sendError("failed to complete message")
			return
		}

		s.hub.Broadcast(TaskChatKey(view.TaskID), broadcastFrame{Message: view, User: view.User})
	}()
}

// janitor выбрасывает буферы, по которым клиент давно молчит, чтобы брошенные
// загрузки не копили память. Строка сообщения в БД остаётся.
func (s *Session) janitor() {
	defer s.wg.Done()

	interval := s.pendingTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.pendingTTL)
			s.mu.Lock()
			for id, pm := range s.pending {
				if pm.updatedAt.Before(cutoff) {
					s.log.Warn("Discarding stale pending buffer", "message_id", id)
					delete(s.pending, id)
					s.removeFromOrder(id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// removeFromOrder вызывается под s.mu.
func (s *Session) removeFromOrder(messageID int64) {
	for i, id := range s.order {
		if id == messageID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Ошибки протокола уходят только отправителю, не в комнату.
func (s *Session) sendError(message string) {
	_ = s.conn.WriteJSON(errorFrame{Type: "error", Message: message})
}
