package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// mockTicketRepo implements repository.TicketRepository in memory with the
// same conditional-write semantics as the postgres implementation.
type mockTicketRepo struct {
	tickets  map[string]*domain.Ticket
	policies map[string]*domain.SLAPolicy
	breaches []domain.SLABreach
	nextID   int

	failRecordBreach bool
}

func newMockTicketRepo() *mockTicketRepo {
	return &mockTicketRepo{
		tickets:  make(map[string]*domain.Ticket),
		policies: make(map[string]*domain.SLAPolicy),
		nextID:   1,
	}
}

func (m *mockTicketRepo) addTicket(ticket domain.Ticket) *domain.Ticket {
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("TKT-%03d", m.nextID)
		m.nextID++
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusNew
	}
	m.tickets[ticket.ID] = &ticket
	return m.tickets[ticket.ID]
}

func (m *mockTicketRepo) addPolicy(policy domain.SLAPolicy) *domain.SLAPolicy {
	m.policies[policy.ID] = &policy
	return m.policies[policy.ID]
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if ticket, ok := m.tickets[id]; ok {
		copied := *ticket
		return &copied, nil
	}
	return nil, errors.New("not found")
}

func (m *mockTicketRepo) AssignSLA(ctx context.Context, ticketID string, binding domain.SLABinding) (bool, error) {
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return false, errors.New("not found")
	}
	if ticket.SLAPolicyID != nil {
		return false, nil
	}
	policyID := binding.PolicyID
	responseDeadline := binding.ResponseDeadline
	resolutionDeadline := binding.ResolutionDeadline
	responseTarget := binding.ResponseTargetMinutes
	resolutionTarget := binding.ResolutionTargetMinutes
	ticket.SLAPolicyID = &policyID
	ticket.ResponseDeadline = &responseDeadline
	ticket.ResolutionDeadline = &resolutionDeadline
	ticket.ResponseTargetMinutes = &responseTarget
	ticket.ResolutionTargetMinutes = &resolutionTarget
	return true, nil
}

func (m *mockTicketRepo) StampFirstResponse(ctx context.Context, ticketID string, respondedAt time.Time, breach *domain.SLABreach) (bool, error) {
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return false, errors.New("not found")
	}
	if ticket.FirstResponseAt != nil {
		return false, nil
	}
	stamped := respondedAt
	ticket.FirstResponseAt = &stamped
	if breach != nil && !ticket.ResponseBreached {
		ticket.ResponseBreached = true
		m.insertBreach(breach)
	}
	return true, nil
}

func (m *mockTicketRepo) RecordResponseBreach(ctx context.Context, breach *domain.SLABreach) (bool, error) {
	if m.failRecordBreach {
		return false, errors.New("store unreachable")
	}
	ticket, ok := m.tickets[breach.TicketID]
	if !ok {
		return false, errors.New("not found")
	}
	if ticket.ResponseBreached {
		return false, nil
	}
	ticket.ResponseBreached = true
	m.insertBreach(breach)
	return true, nil
}

func (m *mockTicketRepo) RecordResolutionBreach(ctx context.Context, breach *domain.SLABreach) (bool, error) {
	if m.failRecordBreach {
		return false, errors.New("store unreachable")
	}
	ticket, ok := m.tickets[breach.TicketID]
	if !ok {
		return false, errors.New("not found")
	}
	if ticket.ResolutionBreached {
		return false, nil
	}
	ticket.ResolutionBreached = true
	m.insertBreach(breach)
	return true, nil
}

func (m *mockTicketRepo) Escalate(ctx context.Context, ticketID, escalateTo string, at time.Time) (bool, error) {
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return false, errors.New("not found")
	}
	if ticket.Escalated {
		return false, nil
	}
	escalatedAt := at
	ticket.Escalated = true
	ticket.EscalatedTo = &escalateTo
	ticket.EscalatedAt = &escalatedAt
	return true, nil
}

func (m *mockTicketRepo) ListResponseBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range m.sortedTickets() {
		if !ticket.Open() || ticket.FirstResponseAt != nil || ticket.ResponseBreached {
			continue
		}
		if ticket.ResponseDeadline == nil || !ticket.ResponseDeadline.Before(now) {
			continue
		}
		result = append(result, *ticket)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockTicketRepo) ListResolutionBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range m.sortedTickets() {
		if !ticket.Open() || ticket.ResolutionBreached {
			continue
		}
		if ticket.ResolutionDeadline == nil || !ticket.ResolutionDeadline.Before(now) {
			continue
		}
		result = append(result, *ticket)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockTicketRepo) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]repository.EscalationCandidate, error) {
	var result []repository.EscalationCandidate
	for _, ticket := range m.sortedTickets() {
		if !ticket.Open() || ticket.Escalated || ticket.SLAPolicyID == nil {
			continue
		}
		policy, ok := m.policies[*ticket.SLAPolicyID]
		if !ok || !policy.CanEscalate() {
			continue
		}
		if !ticket.CreatedAt.Add(policy.EscalationThreshold()).Before(now) {
			continue
		}
		result = append(result, repository.EscalationCandidate{
			Ticket:     *ticket,
			EscalateTo: *policy.EscalationTo,
		})
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockTicketRepo) insertBreach(breach *domain.SLABreach) {
	breach.ID = fmt.Sprintf("BRK-%03d", len(m.breaches)+1)
	m.breaches = append(m.breaches, *breach)
}

func (m *mockTicketRepo) breachesFor(ticketID string, breachType domain.BreachType) []domain.SLABreach {
	var result []domain.SLABreach
	for _, breach := range m.breaches {
		if breach.TicketID == ticketID && breach.BreachType == breachType {
			result = append(result, breach)
		}
	}
	return result
}

func (m *mockTicketRepo) sortedTickets() []*domain.Ticket {
	ids := make([]string, 0, len(m.tickets))
	for id := range m.tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.tickets[id])
	}
	return result
}

// mockPolicyStore implements repository.PolicyStore in memory.
type mockPolicyStore struct {
	byPriority map[domain.TicketPriority]*domain.SLAPolicy
}

func newMockPolicyStore() *mockPolicyStore {
	return &mockPolicyStore{byPriority: make(map[domain.TicketPriority]*domain.SLAPolicy)}
}

func (m *mockPolicyStore) add(policy domain.SLAPolicy) *domain.SLAPolicy {
	m.byPriority[policy.Priority] = &policy
	return m.byPriority[policy.Priority]
}

func (m *mockPolicyStore) GetActivePolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	if policy, ok := m.byPriority[priority]; ok && policy.IsActive {
		return policy, nil
	}
	return nil, domain.ErrPolicyNotFound
}

func (m *mockPolicyStore) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	for _, policy := range m.byPriority {
		if policy.ID == id {
			return policy, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockPolicyStore) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for _, policy := range m.byPriority {
		if policy.IsActive {
			result = append(result, *policy)
		}
	}
	return result, nil
}

// mockNotificationRepo records emitted notifications.
type mockNotificationRepo struct {
	created  []domain.Notification
	failNext bool
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	if m.failNext {
		m.failNext = false
		return errors.New("notifications table unreachable")
	}
	notification.ID = fmt.Sprintf("NTF-%03d", len(m.created)+1)
	notification.CreatedAt = time.Now()
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	return append([]domain.Notification{}, m.created...), nil
}
