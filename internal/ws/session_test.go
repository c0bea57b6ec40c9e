package ws

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"task_manager/internal/domain"
	apperrors "task_manager/pkg/errors"
	"task_manager/pkg/logger"
)

type wireFrame struct {
	messageType int
	data        []byte
}

// fakeWire отдаёт заготовленные кадры по одному и копит исходящие JSON.
type fakeWire struct {
	mu     sync.Mutex
	frames []wireFrame
	writes []interface{}
	closed bool
}

func (w *fakeWire) ReadMessage() (int, []byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.frames) == 0 {
		return 0, nil, io.EOF
	}
	f := w.frames[0]
	w.frames = w.frames[1:]
	return f.messageType, f.data, nil
}

func (w *fakeWire) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, v)
	return nil
}

func (w *fakeWire) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWire) sentFrames() []interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]interface{}, len(w.writes))
	copy(out, w.writes)
	return out
}

type completeCall struct {
	messageID int64
	files     []IncomingFile
}

type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	taskID    uuid.UUID
	created   []*domain.ChatMessage
	completed []completeCall
}

func (s *fakeStore) CreateMessage(ctx context.Context, taskID uuid.UUID, sender *domain.User, text string, answerTo *int64) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taskID != s.taskID {
		return nil, apperrors.ErrTaskNotFound
	}
	s.nextID++
	m := &domain.ChatMessage{
		ID:     s.nextID,
		TaskID: taskID,
		UserID: sender.ID,
		Text:   text,
	}
	s.created = append(s.created, m)
	return m, nil
}

func (s *fakeStore) CompleteMessage(ctx context.Context, messageID int64, files []IncomingFile) (*domain.ChatMessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, completeCall{messageID: messageID, files: files})
	return &domain.ChatMessageView{
		ID:     messageID,
		TaskID: s.taskID,
		User:   &domain.User{Username: "sender"},
	}, nil
}

func (s *fakeStore) completedCalls() []completeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]completeCall, len(s.completed))
	copy(out, s.completed)
	return out
}

func textFrame(t *testing.T, v interface{}) wireFrame {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return wireFrame{messageType: websocket.TextMessage, data: data}
}

func newTestSession(conn *fakeWire, hub *Hub, store ChatStore, taskID uuid.UUID) *Session {
	return &Session{
		conn:       conn,
		hub:        hub,
		store:      store,
		user:       &domain.User{ID: uuid.New(), Username: "sender"},
		roomKey:    TaskChatKey(taskID),
		pendingTTL: time.Minute,
		log:        logger.New("error"),
		pending:    make(map[int64]*pendingMessage),
		done:       make(chan struct{}),
	}
}

func TestSessionMessageWithAttachmentsRoundTrip(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}
	hub := newTestHub()

	// Второй участник комнаты должен получить итоговую рассылку
	peer := &fakeConn{}
	hub.Join(TaskChatKey(taskID), peer)

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		textFrame(t, clientFrame{Type: frameMessageMetadata, TaskID: taskID.String(), Message: "see attached"}),
		textFrame(t, clientFrame{Type: frameFileMetadata, MessageID: 1, FileName: "a.png", FilesCount: 2}),
		textFrame(t, clientFrame{Type: frameFileMetadata, MessageID: 1, FileName: "b.png", FilesCount: 2}),
		{messageType: websocket.BinaryMessage, data: []byte("AAAA")},
		{messageType: websocket.BinaryMessage, data: []byte("BBBB")},
		textFrame(t, clientFrame{Type: frameMessageComplete, MessageID: 1}),
	}

	session := newTestSession(conn, hub, store, taskID)
	session.Run(context.Background())

	calls := store.completedCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 complete call, got %d", len(calls))
	}
	if calls[0].messageID != 1 {
		t.Fatalf("expected message 1 completed, got %d", calls[0].messageID)
	}
	if len(calls[0].files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(calls[0].files))
	}
	if calls[0].files[0].Name != "a.png" || string(calls[0].files[0].Data) != "AAAA" {
		t.Fatalf("first file mismatch: %+v", calls[0].files[0])
	}
	if calls[0].files[1].Name != "b.png" || string(calls[0].files[1].Data) != "BBBB" {
		t.Fatalf("second file mismatch: %+v", calls[0].files[1])
	}

	// Подтверждение создания ушло отправителю
	var sawCreated bool
	for _, w := range conn.sentFrames() {
		if cf, ok := w.(createdFrame); ok && cf.MessageID == 1 {
			sawCreated = true
		}
	}
	if !sawCreated {
		t.Fatalf("sender must receive message_created ack, got %v", conn.sentFrames())
	}

	if len(peer.writes) != 1 {
		t.Fatalf("peer must receive exactly one broadcast, got %d", len(peer.writes))
	}
	bf, ok := peer.writes[0].(broadcastFrame)
	if !ok {
		t.Fatalf("unexpected broadcast payload type %T", peer.writes[0])
	}
	if bf.Message.ID != 1 {
		t.Fatalf("broadcast carries wrong message: %+v", bf.Message)
	}
}

func TestSessionTextOnlyMessage(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}
	hub := newTestHub()

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		textFrame(t, clientFrame{Type: frameMessageMetadata, TaskID: taskID.String(), Message: "no files"}),
		textFrame(t, clientFrame{Type: frameMessageComplete, MessageID: 1}),
	}

	session := newTestSession(conn, hub, store, taskID)
	session.Run(context.Background())

	calls := store.completedCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 complete call, got %d", len(calls))
	}
	if len(calls[0].files) != 0 {
		t.Fatalf("expected no files, got %d", len(calls[0].files))
	}
}

func TestSessionUnknownTaskErrorsOnlyToSender(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}
	hub := newTestHub()

	peer := &fakeConn{}
	hub.Join(TaskChatKey(taskID), peer)

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		textFrame(t, clientFrame{Type: frameMessageMetadata, TaskID: uuid.New().String(), Message: "ghost"}),
	}

	session := newTestSession(conn, hub, store, taskID)
	session.Run(context.Background())

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("expected single error frame, got %v", frames)
	}
	ef, ok := frames[0].(errorFrame)
	if !ok || ef.Message != "Not Task Chat model exists" {
		t.Fatalf("unexpected error frame: %+v", frames[0])
	}
	if len(peer.writes) != 0 {
		t.Fatalf("errors must not leak into the room")
	}
}

func TestSessionBinaryWithoutDeclaredSlot(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		{messageType: websocket.BinaryMessage, data: []byte("orphan")},
	}

	session := newTestSession(conn, newTestHub(), store, taskID)
	session.Run(context.Background())

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("expected error frame, got %v", frames)
	}
	if ef, ok := frames[0].(errorFrame); !ok || ef.Type != "error" {
		t.Fatalf("unexpected frame: %+v", frames[0])
	}
}

func TestSessionCompleteUnknownMessageID(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		textFrame(t, clientFrame{Type: frameMessageComplete, MessageID: 99}),
	}

	session := newTestSession(conn, newTestHub(), store, taskID)
	session.Run(context.Background())

	if len(store.completedCalls()) != 0 {
		t.Fatalf("unknown message id must not reach the store")
	}
	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("expected error frame, got %v", frames)
	}
}

func TestSessionUnknownFrameType(t *testing.T) {
	taskID := uuid.New()
	store := &fakeStore{taskID: taskID}

	conn := &fakeWire{}
	conn.frames = []wireFrame{
		textFrame(t, clientFrame{Type: "presence_ping"}),
	}

	session := newTestSession(conn, newTestHub(), store, taskID)
	session.Run(context.Background())

	frames := conn.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("expected error frame for unknown type, got %v", frames)
	}
}
