package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// SweeperService is the periodic breach and escalation pass over open
// tickets. It is stateless and re-entrant: every state transition is a
// conditional write guarded by the flag it sets, so overlapping runs on the
// same ticket resolve to exactly one claim. Rows that fail transiently are
// left unflagged for the next cycle.
type SweeperService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	batchSize  int
	now        func() time.Time
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	BatchSize  int
}

// SweepSummary counts what a single pass claimed.
type SweepSummary struct {
	ResponseBreaches   int
	ResolutionBreaches int
	Escalations        int
	Errors             int
}

// NewSweeperService constructs the service.
func NewSweeperService(deps SweeperDependencies) *SweeperService {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &SweeperService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		batchSize:  batch,
		now:        time.Now,
	}
}

// RunOnce executes the three scans. The scans are independent; a failure in
// one does not stop the others. Per-row failures are counted and left for
// the next cycle.
func (s *SweeperService) RunOnce(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary
	now := s.now()

	s.scanResponseBreaches(ctx, now, &summary)
	s.scanResolutionBreaches(ctx, now, &summary)
	s.scanEscalations(ctx, now, &summary)

	s.metrics.RecordSweep("response_breaches", summary.ResponseBreaches)
	s.metrics.RecordSweep("resolution_breaches", summary.ResolutionBreaches)
	s.metrics.RecordSweep("escalations", summary.Escalations)
	s.metrics.RecordSweep("sweep_errors", summary.Errors)

	if summary.ResponseBreaches > 0 || summary.ResolutionBreaches > 0 || summary.Escalations > 0 || summary.Errors > 0 {
		s.logger.Info("sweep completed",
			zap.Int("response_breaches", summary.ResponseBreaches),
			zap.Int("resolution_breaches", summary.ResolutionBreaches),
			zap.Int("escalations", summary.Escalations),
			zap.Int("errors", summary.Errors))
	}
	return summary, nil
}

// scanResponseBreaches flags open tickets whose response deadline passed with
// no qualifying contact ever recorded.
func (s *SweeperService) scanResponseBreaches(ctx context.Context, now time.Time, summary *SweepSummary) {
	candidates, err := s.tickets.ListResponseBreachCandidates(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("response breach scan failed", zap.Error(err))
		summary.Errors++
		return
	}

	for i := range candidates {
		ticket := &candidates[i]
		target := responseTarget(ticket)
		breach := &domain.SLABreach{
			TicketID:      ticket.ID,
			BreachType:    domain.BreachTypeResponse,
			PolicyID:      *ticket.SLAPolicyID,
			TargetMinutes: target,
			ActualMinutes: domain.OvershootMinutes(target, *ticket.ResponseDeadline, now),
			BreachedAt:    now,
		}
		claimed, err := s.tickets.RecordResponseBreach(ctx, breach)
		if err != nil {
			s.logger.Error("record response breach failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if !claimed {
			// Another runner got there first; success-no-op.
			continue
		}
		summary.ResponseBreaches++
		s.publishBreach(ctx, ticket.ID, breach)
	}
}

// scanResolutionBreaches flags open tickets past their resolution deadline.
// A late-but-present first response does not excuse a late resolution.
func (s *SweeperService) scanResolutionBreaches(ctx context.Context, now time.Time, summary *SweepSummary) {
	candidates, err := s.tickets.ListResolutionBreachCandidates(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("resolution breach scan failed", zap.Error(err))
		summary.Errors++
		return
	}

	for i := range candidates {
		ticket := &candidates[i]
		target := resolutionTarget(ticket)
		breach := &domain.SLABreach{
			TicketID:      ticket.ID,
			BreachType:    domain.BreachTypeResolution,
			PolicyID:      *ticket.SLAPolicyID,
			TargetMinutes: target,
			ActualMinutes: domain.OvershootMinutes(target, *ticket.ResolutionDeadline, now),
			BreachedAt:    now,
		}
		claimed, err := s.tickets.RecordResolutionBreach(ctx, breach)
		if err != nil {
			s.logger.Error("record resolution breach failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if !claimed {
			continue
		}
		summary.ResolutionBreaches++
		s.publishBreach(ctx, ticket.ID, breach)
	}
}

// scanEscalations forwards still-open tickets past the policy threshold,
// measured from ticket creation independently of any breach.
func (s *SweeperService) scanEscalations(ctx context.Context, now time.Time, summary *SweepSummary) {
	candidates, err := s.tickets.ListEscalationCandidates(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("escalation scan failed", zap.Error(err))
		summary.Errors++
		return
	}

	for i := range candidates {
		candidate := &candidates[i]
		claimed, err := s.tickets.Escalate(ctx, candidate.Ticket.ID, candidate.EscalateTo, now)
		if err != nil {
			s.logger.Error("escalate failed",
				zap.String("ticket_id", candidate.Ticket.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if !claimed {
			continue
		}
		summary.Escalations++
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventSLAEscalation,
			TicketID: candidate.Ticket.ID,
			Payload: events.SLAEscalationPayload{
				EscalatedTo: candidate.EscalateTo,
				EscalatedAt: now,
			},
		})
	}
}

func (s *SweeperService) publishBreach(ctx context.Context, ticketID string, breach *domain.SLABreach) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventSLABreach,
		TicketID: ticketID,
		Payload: events.SLABreachPayload{
			BreachType:    breach.BreachType,
			PolicyID:      breach.PolicyID,
			TargetMinutes: breach.TargetMinutes,
			ActualMinutes: breach.ActualMinutes,
		},
	})
}
