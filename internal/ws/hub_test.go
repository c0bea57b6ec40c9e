package ws

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"task_manager/pkg/logger"
)

type fakeConn struct {
	writes   []interface{}
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	return NewHub(logger.New("error"))
}

func TestHubBroadcastDeliversToAllChannelConns(t *testing.T) {
	hub := newTestHub()
	key := TaskChatKey(uuid.New())

	a := &fakeConn{}
	b := &fakeConn{}
	other := &fakeConn{}

	hub.Join(key, a)
	hub.Join(key, b)
	hub.Join(TaskChatKey(uuid.New()), other)

	hub.Broadcast(key, "hello")

	if len(a.writes) != 1 || len(b.writes) != 1 {
		t.Fatalf("expected one write per channel conn, got %d and %d", len(a.writes), len(b.writes))
	}
	if len(other.writes) != 0 {
		t.Fatalf("conn in another channel must not receive the payload")
	}
}

func TestHubBroadcastEmptyChannelIsNoop(t *testing.T) {
	hub := newTestHub()
	// Не должно паниковать и не должно создавать канал
	hub.Broadcast(NotifyKey(uuid.New()), "ping")

	if n := hub.ConnCount(NotifyKey(uuid.New())); n != 0 {
		t.Fatalf("expected no connections, got %d", n)
	}
}

func TestHubBroadcastDropsFailedConn(t *testing.T) {
	hub := newTestHub()
	key := NotifyKey(uuid.New())

	ok := &fakeConn{}
	bad := &fakeConn{writeErr: errors.New("broken pipe")}

	hub.Join(key, ok)
	hub.Join(key, bad)

	hub.Broadcast(key, "ping")

	if !bad.closed {
		t.Fatalf("failed conn must be closed")
	}
	if hub.ConnCount(key) != 1 {
		t.Fatalf("expected failed conn removed, count=%d", hub.ConnCount(key))
	}
	if len(ok.writes) != 1 {
		t.Fatalf("healthy conn must still receive the payload")
	}
}

func TestHubLeaveRemovesConn(t *testing.T) {
	hub := newTestHub()
	key := TaskChatKey(uuid.New())
	conn := &fakeConn{}

	hub.Join(key, conn)
	hub.Leave(key, conn)

	hub.Broadcast(key, "after leave")
	if len(conn.writes) != 0 {
		t.Fatalf("left conn must not receive broadcasts")
	}
	if hub.ConnCount(key) != 0 {
		t.Fatalf("expected empty channel after leave")
	}
}

func TestHubDropRemovesFromAllChannels(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	keyA := TaskChatKey(uuid.New())
	keyB := NotifyKey(uuid.New())

	hub.Join(keyA, conn)
	hub.Join(keyB, conn)

	hub.Drop(conn)

	if !conn.closed {
		t.Fatalf("dropped conn must be closed")
	}
	if hub.ConnCount(keyA) != 0 || hub.ConnCount(keyB) != 0 {
		t.Fatalf("dropped conn must be removed from every channel")
	}
}

func TestChannelKeys(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	if got := TaskChatKey(id); got != "task_chat_11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected task chat key: %s", got)
	}
	if got := NotifyKey(id); got != "notify_11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected notify key: %s", got)
	}
}
