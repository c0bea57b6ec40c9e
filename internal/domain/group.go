package domain

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Name      string      `json:"name"`
	Members   []uuid.UUID `json:"members,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (g *Group) HasMember(userID uuid.UUID) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupLog — запись аудита членства. Только вставка, строки никогда
// не обновляются и не удаляются.
type GroupLog struct {
	ID             int64                  `json:"id"`
	GroupID        uuid.UUID              `json:"group_id"`
	Event          string                 `json:"event"`
	EventType      string                 `json:"event_type"`
	AnchorUserID   *uuid.UUID             `json:"anchor_user_id,omitempty"`
	AnchorUsername *string                `json:"anchor_username,omitempty"`
	GroupName      string                 `json:"group_name,omitempty"`
	Data           map[string]interface{} `json:"data"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Значения совпадают с исходной схемой БД, поэтому не SCREAMING_CASE.
const (
	EventTypeAddMember       = "Add member"
	EventTypeKickedMember    = "Kicked member"
	EventTypeChangeSettings  = "Change settings"
	EventTypeInviteMember    = "Invite member"
	EventTypeInviteDeflected = "Invite deflected"
)

var AllowedLogEventTypes = map[string]struct{}{
	EventTypeAddMember:       {},
	EventTypeKickedMember:    {},
	EventTypeChangeSettings:  {},
	EventTypeInviteMember:    {},
	EventTypeInviteDeflected: {},
}
