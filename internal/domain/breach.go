package domain

import "time"

// BreachType distinguishes the two deadline kinds.
type BreachType string

const (
	BreachTypeResponse   BreachType = "response"
	BreachTypeResolution BreachType = "resolution"
)

// SLABreach is an append-only audit record of a missed deadline. At most one
// row per (ticket, breach type); the ticket's guard flag enforces that, not a
// uniqueness constraint on this table.
type SLABreach struct {
	ID            string
	TicketID      string
	BreachType    BreachType
	PolicyID      string
	TargetMinutes int
	ActualMinutes int
	BreachedAt    time.Time
}

// OvershootMinutes computes the audit elapsed-minutes figure: the committed
// target plus the whole minutes past the deadline. Never less than target.
func OvershootMinutes(targetMinutes int, deadline, now time.Time) int {
	over := int(now.Sub(deadline).Minutes())
	if over < 0 {
		over = 0
	}
	return targetMinutes + over
}
