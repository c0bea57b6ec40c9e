package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        int64                  `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	Type      string                 `json:"notify_type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	IsRead    bool                   `json:"is_read"`
}

const (
	NotifyTypeInvite     = "Invite"
	NotifyTypeTaskUpdate = "Task status update"
)

// GroupID достаёт group_id из payload приглашения.
func (n *Notification) GroupID() (uuid.UUID, bool) {
	if n.Data == nil {
		return uuid.Nil, false
	}
	raw, ok := n.Data["group_id"]
	if !ok {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
