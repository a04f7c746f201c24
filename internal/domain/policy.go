package domain

import (
	"errors"
	"time"
)

// ErrPolicyNotFound signals that no active policy exists for a priority.
// Callers treat the ticket as untracked rather than failing.
var ErrPolicyNotFound = errors.New("no active sla policy for priority")

// SLAPolicy is the per-priority timing contract.
type SLAPolicy struct {
	ID                     string
	Priority               TicketPriority
	ResponseTimeMinutes    int
	ResolutionTimeMinutes  int
	EscalationEnabled      bool
	EscalationAfterMinutes int
	EscalationTo           *string
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ResponseBudget returns the first-response window as a duration.
func (p *SLAPolicy) ResponseBudget() time.Duration {
	return time.Duration(p.ResponseTimeMinutes) * time.Minute
}

// ResolutionBudget returns the resolution window as a duration.
func (p *SLAPolicy) ResolutionBudget() time.Duration {
	return time.Duration(p.ResolutionTimeMinutes) * time.Minute
}

// EscalationThreshold returns the escalation window as a duration.
func (p *SLAPolicy) EscalationThreshold() time.Duration {
	return time.Duration(p.EscalationAfterMinutes) * time.Minute
}

// CanEscalate reports whether the policy defines a usable escalation rule.
func (p *SLAPolicy) CanEscalate() bool {
	return p.EscalationEnabled && p.EscalationTo != nil && p.EscalationAfterMinutes > 0
}
