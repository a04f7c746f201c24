package domain

import "time"

// NotificationType enumerates outbound signal kinds emitted by the engine.
type NotificationType string

const (
	NotificationTypeSLABreach     NotificationType = "sla_breach"
	NotificationTypeSLAEscalation NotificationType = "sla_escalation"
)

// Notification is an outbound record consumed by the external delivery
// collaborator, which owns transmission and read state.
type Notification struct {
	ID      string
	Type    NotificationType
	Title   string
	Message string
	Link    string
	RefID   string
	// Nil UserID means broadcast to all support staff.
	UserID    *string
	IsRead    bool
	CreatedAt time.Time
}
