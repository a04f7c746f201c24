package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// BreachFilter narrows the breach journal listing.
type BreachFilter struct {
	BreachType *domain.BreachType
	Priority   *domain.TicketPriority
	TicketID   *string
	Limit      int
	Offset     int
}

// BreachRecord joins an audit row with ticket summary fields for the journal.
type BreachRecord struct {
	Breach         domain.SLABreach
	TicketPriority domain.TicketPriority
	TicketStatus   domain.TicketStatus
}

// BreachRepository reads the append-only breach audit log. Inserts happen
// inside TicketRepository transactions so flag flips and audit rows commit
// together.
type BreachRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error)
	ListWithTickets(ctx context.Context, filter BreachFilter) ([]BreachRecord, error)
	CountByType(ctx context.Context) (map[domain.BreachType]int64, error)
}

type breachRepository struct {
	pool *pgxpool.Pool
}

// NewBreachRepository instantiates repository.
func NewBreachRepository(pool *pgxpool.Pool) BreachRepository {
	return &breachRepository{pool: pool}
}

func (r *breachRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error) {
	const query = `
        SELECT id, ticket_id, breach_type, policy_id, target_minutes, actual_minutes, breached_at
        FROM sla_breaches WHERE ticket_id=$1 ORDER BY breached_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLABreach
	for rows.Next() {
		var breach domain.SLABreach
		if err := rows.Scan(
			&breach.ID,
			&breach.TicketID,
			&breach.BreachType,
			&breach.PolicyID,
			&breach.TargetMinutes,
			&breach.ActualMinutes,
			&breach.BreachedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, breach)
	}
	return result, rows.Err()
}

func (r *breachRepository) ListWithTickets(ctx context.Context, filter BreachFilter) ([]BreachRecord, error) {
	base := `SELECT b.id, b.ticket_id, b.breach_type, b.policy_id, b.target_minutes, b.actual_minutes, b.breached_at,
                    t.priority, t.status
             FROM sla_breaches b
             JOIN tickets t ON t.id = b.ticket_id`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.BreachType != nil {
		args = append(args, *filter.BreachType)
		clauses = append(clauses, fmt.Sprintf("b.breach_type=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("b.ticket_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY b.breached_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BreachRecord
	for rows.Next() {
		var record BreachRecord
		if err := rows.Scan(
			&record.Breach.ID,
			&record.Breach.TicketID,
			&record.Breach.BreachType,
			&record.Breach.PolicyID,
			&record.Breach.TargetMinutes,
			&record.Breach.ActualMinutes,
			&record.Breach.BreachedAt,
			&record.TicketPriority,
			&record.TicketStatus,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (r *breachRepository) CountByType(ctx context.Context) (map[domain.BreachType]int64, error) {
	const query = `SELECT breach_type, COUNT(*) FROM sla_breaches GROUP BY breach_type`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.BreachType]int64)
	for rows.Next() {
		var breachType domain.BreachType
		var count int64
		if err := rows.Scan(&breachType, &count); err != nil {
			return nil, err
		}
		result[breachType] = count
	}
	return result, rows.Err()
}
