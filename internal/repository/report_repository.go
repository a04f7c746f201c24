package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ComplianceTotals carries the raw counters behind the compliance rates.
// Untracked tickets never enter these denominators.
type ComplianceTotals struct {
	TrackedTickets  int64
	ResponseMet     int64
	ResolvedTracked int64
	ResolutionMet   int64
}

// PriorityCompliance is ComplianceTotals per priority tier plus averages.
type PriorityCompliance struct {
	Priority             domain.TicketPriority
	TrackedTickets       int64
	ResponseMet          int64
	ResolvedTracked      int64
	ResolutionMet        int64
	AvgResponseMinutes   *float64
	AvgResolutionMinutes *float64
}

// AtRiskTicket flags a deadline approaching within the lookahead window.
type AtRiskTicket struct {
	TicketID string
	Priority domain.TicketPriority
	RiskType domain.BreachType
	DueAt    time.Time
}

// ReportRepository serves the read-only compliance aggregations.
type ReportRepository interface {
	ComplianceTotals(ctx context.Context) (*ComplianceTotals, error)
	ComplianceByPriority(ctx context.Context) ([]PriorityCompliance, error)
	ListAtRisk(ctx context.Context, now time.Time, responseWindow, resolutionWindow time.Duration, limit int) ([]AtRiskTicket, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

// A response counts as met when the ticket never breached and either a first
// response exists or the ticket reached a terminal state without one being
// flagged. Resolution compliance only considers resolved tickets.
const complianceSelect = `
       COUNT(*),
       COUNT(*) FILTER (WHERE response_breached=false
                          AND (status IN ('resolved','closed') OR first_response_at IS NOT NULL)),
       COUNT(*) FILTER (WHERE resolved_at IS NOT NULL),
       COUNT(*) FILTER (WHERE resolved_at IS NOT NULL AND resolution_breached=false)`

func (r *reportRepository) ComplianceTotals(ctx context.Context) (*ComplianceTotals, error) {
	const query = `
        SELECT` + complianceSelect + `
        FROM tickets WHERE sla_policy_id IS NOT NULL`
	var totals ComplianceTotals
	if err := r.pool.QueryRow(ctx, query).Scan(
		&totals.TrackedTickets,
		&totals.ResponseMet,
		&totals.ResolvedTracked,
		&totals.ResolutionMet,
	); err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *reportRepository) ComplianceByPriority(ctx context.Context) ([]PriorityCompliance, error) {
	const query = `
        SELECT priority,` + complianceSelect + `,
               AVG(EXTRACT(EPOCH FROM (first_response_at - created_at))/60)
                   FILTER (WHERE first_response_at IS NOT NULL),
               AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))/60)
                   FILTER (WHERE resolved_at IS NOT NULL)
        FROM tickets WHERE sla_policy_id IS NOT NULL
        GROUP BY priority
        ORDER BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityCompliance
	for rows.Next() {
		var entry PriorityCompliance
		if err := rows.Scan(
			&entry.Priority,
			&entry.TrackedTickets,
			&entry.ResponseMet,
			&entry.ResolvedTracked,
			&entry.ResolutionMet,
			&entry.AvgResponseMinutes,
			&entry.AvgResolutionMinutes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *reportRepository) ListAtRisk(ctx context.Context, now time.Time, responseWindow, resolutionWindow time.Duration, limit int) ([]AtRiskTicket, error) {
	const query = `
        SELECT id, priority, 'response' AS risk_type, response_deadline AS due_at
        FROM tickets
        WHERE status NOT IN ('resolved','closed')
          AND sla_policy_id IS NOT NULL
          AND first_response_at IS NULL
          AND response_breached=false
          AND response_deadline >= $1
          AND response_deadline < $2
        UNION ALL
        SELECT id, priority, 'resolution' AS risk_type, resolution_deadline AS due_at
        FROM tickets
        WHERE status NOT IN ('resolved','closed')
          AND sla_policy_id IS NOT NULL
          AND resolution_breached=false
          AND resolution_deadline >= $1
          AND resolution_deadline < $3
        ORDER BY due_at
        LIMIT $4`
	rows, err := r.pool.Query(ctx, query, now, now.Add(responseWindow), now.Add(resolutionWindow), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AtRiskTicket
	for rows.Next() {
		var entry AtRiskTicket
		if err := rows.Scan(&entry.TicketID, &entry.Priority, &entry.RiskType, &entry.DueAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
