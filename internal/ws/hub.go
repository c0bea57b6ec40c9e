package ws

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"task_manager/pkg/logger"
)

// Conn — минимальный контракт живого соединения для реестра.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub — реестр живых соединений по логическим каналам.
// Создаётся один раз в main и передаётся по ссылке, никаких синглтонов.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Conn]struct{}
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[Conn]struct{}),
		log:      log,
	}
}

func TaskChatKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task_chat_%s", taskID)
}

func NotifyKey(userID uuid.UUID) string {
	return fmt.Sprintf("notify_%s", userID)
}

func (h *Hub) Join(key string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.channels[key]
	if !ok {
		conns = make(map[Conn]struct{})
		h.channels[key] = conns
	}
	conns[conn] = struct{}{}
}

func (h *Hub) Leave(key string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.channels[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.channels, key)
		}
	}
}

// Broadcast отправляет payload всем соединениям канала. Пустой канал — не
// ошибка: пользователь офлайн, уведомление его дождётся в БД. Ошибка записи
// в одно соединение не прерывает доставку остальным — сбойное соединение
// выбрасывается из реестра целиком.
func (h *Hub) Broadcast(key string, payload interface{}) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.channels[key]))
	for conn := range h.channels[key] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	var failed []Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.log.Warn("Dropping connection after failed write", "channel", key, "error", err)
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		h.Drop(conn)
	}
}

// Drop удаляет соединение из всех каналов и закрывает его.
func (h *Hub) Drop(conn Conn) {
	h.mu.Lock()
	for key, conns := range h.channels {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.channels, key)
		}
	}
	h.mu.Unlock()

	_ = conn.Close()
}

// ConnCount возвращает число соединений в канале (для health/отладки).
func (h *Hub) ConnCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[key])
}
