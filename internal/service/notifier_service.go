package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// NotifierService turns breach and escalation events into outbound
// Notification rows for the external delivery collaborator, plus the stub
// email/webhook signals. The row insert is fire-and-forget relative to the
// state flip that triggered it: a failed insert is logged distinctly and
// never retried, because the guard flag already committed.
type NotifierService struct {
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	cfg           config.NotificationConfig
}

// NewNotifierService creates the service.
func NewNotifierService(notifications repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotifierService {
	return &NotifierService{
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        logger,
		metrics:       metrics,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to engine events.
func (n *NotifierService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLABreach, n.handleBreach)
	n.dispatcher.Subscribe(events.EventSLAEscalation, n.handleEscalation)
}

func (n *NotifierService) handleBreach(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreachPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	notification := &domain.Notification{
		Type:  domain.NotificationTypeSLABreach,
		Title: fmt.Sprintf("SLA %s breach", payload.BreachType),
		Message: fmt.Sprintf("Ticket %s missed its %s target of %d minutes (%d minutes elapsed)",
			event.TicketID, payload.BreachType, payload.TargetMinutes, payload.ActualMinutes),
		Link:  "/tickets/" + event.TicketID,
		RefID: event.TicketID,
		// Breach alerts broadcast to all support staff.
		UserID: nil,
	}
	n.emit(ctx, notification)
	n.sendEmailStub(event)
	n.sendWebhookStub(event)
	return nil
}

func (n *NotifierService) handleEscalation(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLAEscalationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	escalatedTo := payload.EscalatedTo
	notification := &domain.Notification{
		Type:    domain.NotificationTypeSLAEscalation,
		Title:   "Ticket escalated",
		Message: fmt.Sprintf("Ticket %s remained open past the escalation threshold and was escalated to you", event.TicketID),
		Link:    "/tickets/" + event.TicketID,
		RefID:   event.TicketID,
		UserID:  &escalatedTo,
	}
	n.emit(ctx, notification)
	n.sendWebhookStub(event)
	return nil
}

// emit inserts the outbound row. Once inserted, the row is the retry unit
// for the external transport; a failed insert is only logged so an operator
// can reconcile missed alerts.
func (n *NotifierService) emit(ctx context.Context, notification *domain.Notification) {
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("notification emit failed after state flip",
			zap.String("ticket_id", notification.RefID),
			zap.String("type", string(notification.Type)),
			zap.Error(err))
		n.metrics.RecordSweep("notification_errors", 1)
		return
	}
	n.metrics.RecordSweep("notifications_emitted", 1)
}

func (n *NotifierService) sendEmailStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotifierService) sendWebhookStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
