package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketCreatedRequest is the lifecycle hook payload for ticket creation.
type TicketCreatedRequest struct {
	TicketID string                `json:"ticket_id"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketEventRequest is the payload for first-contact and resolved hooks.
type TicketEventRequest struct {
	TicketID string `json:"ticket_id"`
}

// BindingResponse reports the deadlines stamped onto a ticket.
type BindingResponse struct {
	Tracked            bool       `json:"tracked"`
	PolicyID           *string    `json:"policy_id,omitempty"`
	ResponseDeadline   *time.Time `json:"response_deadline,omitempty"`
	ResolutionDeadline *time.Time `json:"resolution_deadline,omitempty"`
}

// FirstResponseResponse reports the first-contact outcome.
type FirstResponseResponse struct {
	Recorded    bool       `json:"recorded"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	WasBreached bool       `json:"was_breached"`
}

// BreachResponse is one breach journal entry.
type BreachResponse struct {
	ID             string                `json:"id"`
	TicketID       string                `json:"ticket_id"`
	BreachType     domain.BreachType     `json:"breach_type"`
	PolicyID       string                `json:"policy_id"`
	TargetMinutes  int                   `json:"target_minutes"`
	ActualMinutes  int                   `json:"actual_minutes"`
	BreachedAt     time.Time             `json:"breached_at"`
	TicketPriority domain.TicketPriority `json:"ticket_priority"`
	TicketStatus   domain.TicketStatus   `json:"ticket_status"`
}

// AtRiskResponse is one approaching-deadline warning.
type AtRiskResponse struct {
	TicketID    string                `json:"ticket_id"`
	Priority    domain.TicketPriority `json:"priority"`
	RiskType    domain.BreachType     `json:"risk_type"`
	DueAt       time.Time             `json:"due_at"`
	MinutesLeft int                   `json:"minutes_left"`
}

// PolicyResponse is the read-only policy listing entry.
type PolicyResponse struct {
	ID                     string                `json:"id"`
	Priority               domain.TicketPriority `json:"priority"`
	ResponseTimeMinutes    int                   `json:"response_time_minutes"`
	ResolutionTimeMinutes  int                   `json:"resolution_time_minutes"`
	EscalationEnabled      bool                  `json:"escalation_enabled"`
	EscalationAfterMinutes int                   `json:"escalation_after_minutes"`
	EscalationTo           *string               `json:"escalation_to,omitempty"`
}

// NotificationResponse is one outbound notification record.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Link      string                  `json:"link"`
	RefID     string                  `json:"ref_id"`
	UserID    *string                 `json:"user_id,omitempty"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// SweepResponse reports a manually triggered sweep.
type SweepResponse struct {
	ResponseBreaches   int `json:"response_breaches"`
	ResolutionBreaches int `json:"resolution_breaches"`
	Escalations        int `json:"escalations"`
	Errors             int `json:"errors"`
}
