package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// RecorderService handles ticket lifecycle hooks: the first qualifying agent
// contact and the resolution of a ticket. What counts as "qualifying" is the
// caller's decision; this service only needs the ticket id.
type RecorderService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RecorderDependencies bundles collaborators for the recorder.
type RecorderDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// FirstResponseResult reports the outcome of a recorded first response.
type FirstResponseResult struct {
	RespondedAt time.Time
	WasBreached bool
}

// NewRecorderService constructs the service.
func NewRecorderService(deps RecorderDependencies) *RecorderService {
	return &RecorderService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// RecordFirstResponse stamps first_response_at and determines retroactively
// whether the response deadline was already missed. Idempotent: repeated
// calls after the first stamp return nil, nil and change nothing. When the
// deadline was missed, the guard flag flip and the audit row commit in the
// same transaction as the stamp.
func (s *RecorderService) RecordFirstResponse(ctx context.Context, ticketID string) (*FirstResponseResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.FirstResponseAt != nil {
		return nil, nil
	}

	now := s.now()
	wasBreached := ticket.ResponseBreached ||
		(ticket.ResponseDeadline != nil && now.After(*ticket.ResponseDeadline))

	// The sweeper may have claimed the breach already; only a false→true
	// flag transition carries an audit row.
	var breach *domain.SLABreach
	if wasBreached && !ticket.ResponseBreached {
		target := responseTarget(ticket)
		breach = &domain.SLABreach{
			TicketID:      ticket.ID,
			BreachType:    domain.BreachTypeResponse,
			PolicyID:      *ticket.SLAPolicyID,
			TargetMinutes: target,
			ActualMinutes: domain.OvershootMinutes(target, *ticket.ResponseDeadline, now),
			BreachedAt:    now,
		}
	}

	claimed, err := s.tickets.StampFirstResponse(ctx, ticket.ID, now, breach)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Concurrent duplicate trigger won the stamp.
		return nil, nil
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventFirstResponse,
		TicketID: ticket.ID,
		Payload: events.FirstResponsePayload{
			RespondedAt: now,
			WasBreached: wasBreached,
		},
	})
	return &FirstResponseResult{RespondedAt: now, WasBreached: wasBreached}, nil
}

// RecordResolution checks a just-resolved ticket against its resolution
// deadline. The sweeper only scans open tickets, so a ticket resolved late
// between sweeps would otherwise never be flagged. Idempotent via the same
// guard flag the sweeper uses.
func (s *RecorderService) RecordResolution(ctx context.Context, ticketID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if !ticket.Tracked() || ticket.ResolutionDeadline == nil || ticket.ResolutionBreached {
		return false, nil
	}

	resolvedAt := s.now()
	if ticket.ResolvedAt != nil {
		resolvedAt = *ticket.ResolvedAt
	}
	if !resolvedAt.After(*ticket.ResolutionDeadline) {
		return false, nil
	}

	target := resolutionTarget(ticket)
	breach := &domain.SLABreach{
		TicketID:      ticket.ID,
		BreachType:    domain.BreachTypeResolution,
		PolicyID:      *ticket.SLAPolicyID,
		TargetMinutes: target,
		ActualMinutes: domain.OvershootMinutes(target, *ticket.ResolutionDeadline, resolvedAt),
		BreachedAt:    resolvedAt,
	}

	claimed, err := s.tickets.RecordResolutionBreach(ctx, breach)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventSLABreach,
		TicketID: ticket.ID,
		Payload: events.SLABreachPayload{
			BreachType:    breach.BreachType,
			PolicyID:      breach.PolicyID,
			TargetMinutes: breach.TargetMinutes,
			ActualMinutes: breach.ActualMinutes,
		},
	})
	return true, nil
}

// responseTarget reads the target snapshotted at binding time. The fallback
// re-derives it from the deadline, which is equal by construction.
func responseTarget(ticket *domain.Ticket) int {
	if ticket.ResponseTargetMinutes != nil {
		return *ticket.ResponseTargetMinutes
	}
	return int(ticket.ResponseDeadline.Sub(ticket.CreatedAt).Minutes())
}

func resolutionTarget(ticket *domain.Ticket) int {
	if ticket.ResolutionTargetMinutes != nil {
		return *ticket.ResolutionTargetMinutes
	}
	return int(ticket.ResolutionDeadline.Sub(ticket.CreatedAt).Minutes())
}
