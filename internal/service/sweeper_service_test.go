package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
)

// sweeperFixture wires a sweeper with a live dispatcher and notifier so
// tests observe the notifications a sweep emits.
type sweeperFixture struct {
	tickets       *mockTicketRepo
	notifications *mockNotificationRepo
	sweeper       *SweeperService
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	tickets := newMockTicketRepo()
	notifications := &mockNotificationRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notifier := NewNotifierService(notifications, dispatcher, zap.NewNop(), metrics, config.NotificationConfig{})
	notifier.RegisterHandlers()

	sweeper := NewSweeperService(SweeperDependencies{
		TicketRepo: tickets,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
		BatchSize:  100,
	})
	return &sweeperFixture{tickets: tickets, notifications: notifications, sweeper: sweeper}
}

func TestSweepResponseBreach(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 15, 240)

	// Sweep runs 5 minutes past the 15 minute response deadline.
	f.sweeper.now = func() time.Time { return t0.Add(20 * time.Minute) }

	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ResponseBreaches)
	assert.Equal(t, 0, summary.ResolutionBreaches)
	assert.Equal(t, 0, summary.Escalations)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.ResponseBreached)

	breaches := f.tickets.breachesFor(ticket.ID, domain.BreachTypeResponse)
	require.Len(t, breaches, 1)
	assert.Equal(t, 20, breaches[0].ActualMinutes)

	require.Len(t, f.notifications.created, 1)
	notification := f.notifications.created[0]
	assert.Equal(t, domain.NotificationTypeSLABreach, notification.Type)
	assert.Equal(t, ticket.ID, notification.RefID)
	assert.Nil(t, notification.UserID)
}

func TestSweepConvergence(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	boundTicket(f.tickets, t0, 15, 60)

	f.sweeper.now = func() time.Time { return t0.Add(2 * time.Hour) }

	first, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ResponseBreaches)
	assert.Equal(t, 1, first.ResolutionBreaches)

	second, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.ResponseBreaches)
	assert.Zero(t, second.ResolutionBreaches)
	assert.Zero(t, second.Escalations)

	assert.Len(t, f.tickets.breaches, 2)
	assert.Len(t, f.notifications.created, 2)
}

func TestSweepOvershootAccounting(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 30, 480)

	// Caught 45 minutes after the deadline passed.
	f.sweeper.now = func() time.Time { return t0.Add(75 * time.Minute) }

	_, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)

	breaches := f.tickets.breachesFor(ticket.ID, domain.BreachTypeResponse)
	require.Len(t, breaches, 1)
	assert.Equal(t, 75, breaches[0].ActualMinutes)
}

func TestSweepResolutionBreachDespiteTimelyResponse(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 15, 60)

	respondedAt := t0.Add(10 * time.Minute)
	f.tickets.tickets[ticket.ID].FirstResponseAt = &respondedAt

	f.sweeper.now = func() time.Time { return t0.Add(90 * time.Minute) }

	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ResponseBreaches)
	assert.Equal(t, 1, summary.ResolutionBreaches)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, stored.ResponseBreached)
	assert.True(t, stored.ResolutionBreached)
}

func TestSweepEscalation(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 30, 480)

	manager := "usr-lead"
	f.tickets.addPolicy(domain.SLAPolicy{
		ID:                     "pol-1",
		Priority:               domain.TicketPriorityHigh,
		ResponseTimeMinutes:    30,
		ResolutionTimeMinutes:  480,
		EscalationEnabled:      true,
		EscalationAfterMinutes: 120,
		EscalationTo:           &manager,
		IsActive:               true,
	})

	// Agent responded at minute 20, so no response breach; the ticket is
	// still open at minute 130, past the escalation threshold.
	respondedAt := t0.Add(20 * time.Minute)
	f.tickets.tickets[ticket.ID].FirstResponseAt = &respondedAt

	f.sweeper.now = func() time.Time { return t0.Add(130 * time.Minute) }

	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalations)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.Escalated)
	assert.False(t, stored.ResponseBreached)
	require.NotNil(t, stored.EscalatedTo)
	assert.Equal(t, manager, *stored.EscalatedTo)
	assert.Equal(t, t0.Add(130*time.Minute), *stored.EscalatedAt)

	// Escalation notification targets the responsible user.
	var escalations []domain.Notification
	for _, notification := range f.notifications.created {
		if notification.Type == domain.NotificationTypeSLAEscalation {
			escalations = append(escalations, notification)
		}
	}
	require.Len(t, escalations, 1)
	require.NotNil(t, escalations[0].UserID)
	assert.Equal(t, manager, *escalations[0].UserID)

	// A second pass does not escalate again.
	again, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Escalations)
}

func TestSweepIgnoresUntrackedAndClosedTickets(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// Untracked: no deadlines at all.
	f.tickets.addTicket(domain.Ticket{Priority: domain.TicketPriorityLow, CreatedAt: t0})

	// Tracked but closed before the sweep.
	closed := boundTicket(f.tickets, t0, 15, 60)
	f.tickets.tickets[closed.ID].Status = domain.TicketStatusClosed

	f.sweeper.now = func() time.Time { return t0.Add(3 * time.Hour) }

	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ResponseBreaches)
	assert.Zero(t, summary.ResolutionBreaches)
	assert.Zero(t, summary.Escalations)
	assert.Empty(t, f.tickets.breaches)
}

func TestSweepTransientFailureLeavesRowForNextCycle(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 15, 480)

	f.sweeper.now = func() time.Time { return t0.Add(30 * time.Minute) }

	f.tickets.failRecordBreach = true
	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ResponseBreaches)
	assert.Equal(t, 1, summary.Errors)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, stored.ResponseBreached)

	// Next cycle succeeds and claims the row exactly once.
	f.tickets.failRecordBreach = false
	summary, err = f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ResponseBreaches)
	assert.Len(t, f.tickets.breachesFor(ticket.ID, domain.BreachTypeResponse), 1)
}

func TestSweepNotificationFailureDoesNotBlockStateFlip(t *testing.T) {
	f := newSweeperFixture(t)
	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := boundTicket(f.tickets, t0, 15, 480)

	f.notifications.failNext = true
	f.sweeper.now = func() time.Time { return t0.Add(30 * time.Minute) }

	summary, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ResponseBreaches)

	// The guard flag committed even though the notification insert failed,
	// so the next sweep does not re-fire the breach.
	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.ResponseBreached)

	again, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.ResponseBreaches)
	assert.Empty(t, f.notifications.created)
}
