package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// AssignerService binds SLA policies to freshly created tickets.
type AssignerService struct {
	tickets    repository.TicketRepository
	policies   repository.PolicyStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AssignerDependencies bundles collaborators for the assigner.
type AssignerDependencies struct {
	TicketRepo repository.TicketRepository
	Policies   repository.PolicyStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignerService constructs the service.
func NewAssignerService(deps AssignerDependencies) *AssignerService {
	return &AssignerService{
		tickets:    deps.TicketRepo,
		policies:   deps.Policies,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// AssignDeadlines resolves the active policy for the priority and stamps
// absolute deadlines onto the ticket in a single write. A nil, nil return
// means the ticket stays untracked: either no active policy exists for the
// tier or the ticket is already bound. Deadlines are never recomputed; later
// policy edits do not touch already-bound tickets.
func (s *AssignerService) AssignDeadlines(ctx context.Context, ticketID string, priority domain.TicketPriority) (*domain.SLABinding, error) {
	policy, err := s.policies.GetActivePolicy(ctx, priority)
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			s.logger.Debug("no active policy; ticket untracked",
				zap.String("ticket_id", ticketID),
				zap.String("priority", string(priority)))
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	binding := domain.SLABinding{
		PolicyID:                policy.ID,
		ResponseDeadline:        now.Add(policy.ResponseBudget()),
		ResolutionDeadline:      now.Add(policy.ResolutionBudget()),
		ResponseTargetMinutes:   policy.ResponseTimeMinutes,
		ResolutionTargetMinutes: policy.ResolutionTimeMinutes,
	}

	claimed, err := s.tickets.AssignSLA(ctx, ticketID, binding)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.logger.Debug("ticket already bound; assignment skipped", zap.String("ticket_id", ticketID))
		return nil, nil
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventDeadlineAssigned,
		TicketID: ticketID,
		Payload: events.DeadlineAssignedPayload{
			PolicyID:           policy.ID,
			Priority:           priority,
			ResponseDeadline:   binding.ResponseDeadline,
			ResolutionDeadline: binding.ResolutionDeadline,
		},
	})
	return &binding, nil
}

func (s *AssignerService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
