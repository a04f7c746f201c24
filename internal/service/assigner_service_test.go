package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func newTestAssigner(tickets *mockTicketRepo, policies *mockPolicyStore) *AssignerService {
	return NewAssignerService(AssignerDependencies{
		TicketRepo: tickets,
		Policies:   policies,
		Logger:     zap.NewNop(),
	})
}

func TestAssignDeadlines(t *testing.T) {
	tickets := newMockTicketRepo()
	policies := newMockPolicyStore()
	policies.add(domain.SLAPolicy{
		ID:                    "pol-high",
		Priority:              domain.TicketPriorityHigh,
		ResponseTimeMinutes:   15,
		ResolutionTimeMinutes: 240,
		IsActive:              true,
	})

	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := tickets.addTicket(domain.Ticket{Priority: domain.TicketPriorityHigh, CreatedAt: t0})

	svc := newTestAssigner(tickets, policies)
	svc.now = func() time.Time { return t0 }

	binding, err := svc.AssignDeadlines(context.Background(), ticket.ID, ticket.Priority)
	require.NoError(t, err)
	require.NotNil(t, binding)

	assert.Equal(t, "pol-high", binding.PolicyID)
	assert.Equal(t, t0.Add(15*time.Minute), binding.ResponseDeadline)
	assert.Equal(t, t0.Add(240*time.Minute), binding.ResolutionDeadline)

	stored, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SLAPolicyID)
	assert.Equal(t, "pol-high", *stored.SLAPolicyID)
	assert.Equal(t, t0.Add(15*time.Minute), *stored.ResponseDeadline)
	assert.Equal(t, 15, *stored.ResponseTargetMinutes)
	assert.Equal(t, 240, *stored.ResolutionTargetMinutes)
}

func TestAssignDeadlinesUntracked(t *testing.T) {
	tickets := newMockTicketRepo()
	policies := newMockPolicyStore()
	ticket := tickets.addTicket(domain.Ticket{Priority: domain.TicketPriorityLow, CreatedAt: time.Now()})

	svc := newTestAssigner(tickets, policies)

	binding, err := svc.AssignDeadlines(context.Background(), ticket.ID, ticket.Priority)
	require.NoError(t, err)
	assert.Nil(t, binding)

	stored, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SLAPolicyID)
	assert.Nil(t, stored.ResponseDeadline)
	assert.Nil(t, stored.ResolutionDeadline)
}

func TestAssignDeadlinesInactivePolicyMeansUntracked(t *testing.T) {
	tickets := newMockTicketRepo()
	policies := newMockPolicyStore()
	policies.add(domain.SLAPolicy{
		ID:                    "pol-low",
		Priority:              domain.TicketPriorityLow,
		ResponseTimeMinutes:   60,
		ResolutionTimeMinutes: 480,
		IsActive:              false,
	})
	ticket := tickets.addTicket(domain.Ticket{Priority: domain.TicketPriorityLow, CreatedAt: time.Now()})

	svc := newTestAssigner(tickets, policies)

	binding, err := svc.AssignDeadlines(context.Background(), ticket.ID, ticket.Priority)
	require.NoError(t, err)
	assert.Nil(t, binding)
}

func TestAssignDeadlinesRepeatedCallLeavesFieldsUntouched(t *testing.T) {
	tickets := newMockTicketRepo()
	policies := newMockPolicyStore()
	policies.add(domain.SLAPolicy{
		ID:                    "pol-urgent",
		Priority:              domain.TicketPriorityUrgent,
		ResponseTimeMinutes:   5,
		ResolutionTimeMinutes: 60,
		IsActive:              true,
	})

	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ticket := tickets.addTicket(domain.Ticket{Priority: domain.TicketPriorityUrgent, CreatedAt: t0})

	svc := newTestAssigner(tickets, policies)
	svc.now = func() time.Time { return t0 }

	first, err := svc.AssignDeadlines(context.Background(), ticket.ID, ticket.Priority)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second invocation an hour later must not move the deadlines.
	svc.now = func() time.Time { return t0.Add(time.Hour) }
	second, err := svc.AssignDeadlines(context.Background(), ticket.ID, ticket.Priority)
	require.NoError(t, err)
	assert.Nil(t, second)

	stored, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(5*time.Minute), *stored.ResponseDeadline)
	assert.Equal(t, t0.Add(60*time.Minute), *stored.ResolutionDeadline)
}
