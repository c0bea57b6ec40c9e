package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"task_manager/internal/config"
	"task_manager/internal/domain"
	"task_manager/internal/ws"
	"task_manager/pkg/logger"
)

type broadcastCall struct {
	key     string
	payload interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *fakeBroadcaster) Broadcast(key string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{key: key, payload: payload})
}

func (b *fakeBroadcaster) broadcasts() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastCall, len(b.calls))
	copy(out, b.calls)
	return out
}

func TestNotifySyncPersistsThenPushes(t *testing.T) {
	repo := newFakeNotifyRepo()
	hub := &fakeBroadcaster{}
	svc := NewNotifyService(nil, repo, hub, config.NotifyConfig{Mode: config.NotifyModeSync}, logger.New("error"))
	defer svc.Stop()

	userID := uuid.New()
	err := svc.Notify(context.Background(), userID, domain.NotifyTypeTaskUpdate, "task: deploy: Status changed in US", map[string]interface{}{"status": "US"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected persisted notification, got %d", len(repo.notifications))
	}
	for _, n := range repo.notifications {
		if n.UserID != userID || n.Type != domain.NotifyTypeTaskUpdate {
			t.Fatalf("unexpected notification: %+v", n)
		}
	}

	calls := hub.broadcasts()
	if len(calls) != 1 {
		t.Fatalf("expected one push, got %d", len(calls))
	}
	if calls[0].key != ws.NotifyKey(userID) {
		t.Fatalf("push must target the user's notify channel, got %s", calls[0].key)
	}
}

func TestNotifyQueueDeliversAfterStop(t *testing.T) {
	repo := newFakeNotifyRepo()
	hub := &fakeBroadcaster{}
	svc := NewNotifyService(nil, repo, hub, config.NotifyConfig{Mode: config.NotifyModeQueue, QueueSize: 16}, logger.New("error"))

	userA := uuid.New()
	userB := uuid.New()
	for _, id := range []uuid.UUID{userA, userB} {
		if err := svc.Notify(context.Background(), id, domain.NotifyTypeInvite, "hello", nil); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	// Stop дожидается воркера — после него очередь гарантированно пуста
	svc.Stop()

	if len(repo.notifications) != 2 {
		t.Fatalf("expected 2 persisted notifications after drain, got %d", len(repo.notifications))
	}
	if len(hub.broadcasts()) != 2 {
		t.Fatalf("expected 2 pushes after drain, got %d", len(hub.broadcasts()))
	}
}

func TestNotifyQueueZeroCapacityStillDelivers(t *testing.T) {
	repo := newFakeNotifyRepo()
	hub := &fakeBroadcaster{}
	// Ёмкость 0: либо воркер заберёт задание напрямую, либо сработает
	// inline-фолбэк — уведомление не теряется в любом случае
	svc := NewNotifyService(nil, repo, hub, config.NotifyConfig{Mode: config.NotifyModeQueue, QueueSize: 0}, logger.New("error"))

	if err := svc.Notify(context.Background(), uuid.New(), domain.NotifyTypeInvite, "inline", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	svc.Stop()

	if len(repo.notifications) != 1 {
		t.Fatalf("notification must not be lost, got %d rows", len(repo.notifications))
	}
}

func TestNotifyUsersFansOut(t *testing.T) {
	repo := newFakeNotifyRepo()
	hub := &fakeBroadcaster{}
	svc := NewNotifyService(nil, repo, hub, config.NotifyConfig{Mode: config.NotifyModeSync}, logger.New("error"))
	defer svc.Stop()

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	if err := svc.NotifyUsers(context.Background(), users, domain.NotifyTypeTaskUpdate, "task: x: Status changed in BS", nil); err != nil {
		t.Fatalf("NotifyUsers: %v", err)
	}

	if len(repo.notifications) != 3 {
		t.Fatalf("expected one row per user, got %d", len(repo.notifications))
	}

	seen := make(map[string]bool)
	for _, c := range hub.broadcasts() {
		seen[c.key] = true
	}
	for _, id := range users {
		if !seen[ws.NotifyKey(id)] {
			t.Fatalf("user %s did not get a push", id)
		}
	}
}

func TestPushIsLiveOnly(t *testing.T) {
	repo := newFakeNotifyRepo()
	hub := &fakeBroadcaster{}
	svc := NewNotifyService(nil, repo, hub, config.NotifyConfig{Mode: config.NotifyModeSync}, logger.New("error"))
	defer svc.Stop()

	userID := uuid.New()
	svc.Push(userID, "You have been invited to join a group")

	if len(repo.notifications) != 0 {
		t.Fatalf("Push must not persist anything")
	}
	calls := hub.broadcasts()
	if len(calls) != 1 || calls[0].key != ws.NotifyKey(userID) {
		t.Fatalf("unexpected push calls: %+v", calls)
	}
	frame, ok := calls[0].payload.(pushFrame)
	if !ok || frame.Message != "You have been invited to join a group" {
		t.Fatalf("unexpected push payload: %+v", calls[0].payload)
	}
}
