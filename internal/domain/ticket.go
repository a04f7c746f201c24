package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is one of the known tiers.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket carries the subset of ticket state the SLA engine reads and the
// SLA-specific fields it owns. Ticket CRUD owns everything else.
type Ticket struct {
	ID         string
	Priority   TicketPriority
	Status     TicketStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ClosedAt   *time.Time

	// SLA binding, stamped exactly once at creation and never recomputed.
	SLAPolicyID        *string
	ResponseDeadline   *time.Time
	ResolutionDeadline *time.Time
	// Policy targets snapshotted at binding time so audit numbers stay
	// stable when the policy is edited later.
	ResponseTargetMinutes   *int
	ResolutionTargetMinutes *int

	FirstResponseAt    *time.Time
	ResponseBreached   bool
	ResolutionBreached bool

	Escalated   bool
	EscalatedTo *string
	EscalatedAt *time.Time
}

// Tracked reports whether the ticket is bound to an SLA policy.
func (t *Ticket) Tracked() bool {
	return t.SLAPolicyID != nil
}

// Open reports whether the ticket still counts for breach and escalation scans.
func (t *Ticket) Open() bool {
	return t.Status != TicketStatusResolved && t.Status != TicketStatusClosed
}

// SLABinding is the result of a successful deadline assignment.
type SLABinding struct {
	PolicyID                string
	ResponseDeadline        time.Time
	ResolutionDeadline      time.Time
	ResponseTargetMinutes   int
	ResolutionTargetMinutes int
}
