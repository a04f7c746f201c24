package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDeadlineAssigned EventType = "sla.deadline_assigned"
	EventFirstResponse    EventType = "sla.first_response"
	EventSLABreach        EventType = "sla.breach"
	EventSLAEscalation    EventType = "sla.escalation"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DeadlineAssignedPayload payload.
type DeadlineAssignedPayload struct {
	PolicyID           string                `json:"policy_id"`
	Priority           domain.TicketPriority `json:"priority"`
	ResponseDeadline   time.Time             `json:"response_deadline"`
	ResolutionDeadline time.Time             `json:"resolution_deadline"`
}

// FirstResponsePayload payload.
type FirstResponsePayload struct {
	RespondedAt time.Time `json:"responded_at"`
	WasBreached bool      `json:"was_breached"`
}

// SLABreachPayload payload.
type SLABreachPayload struct {
	BreachType    domain.BreachType `json:"breach_type"`
	PolicyID      string            `json:"policy_id"`
	TargetMinutes int               `json:"target_minutes"`
	ActualMinutes int               `json:"actual_minutes"`
}

// SLAEscalationPayload payload.
type SLAEscalationPayload struct {
	EscalatedTo string    `json:"escalated_to"`
	EscalatedAt time.Time `json:"escalated_at"`
}
