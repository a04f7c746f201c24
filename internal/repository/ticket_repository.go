package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EscalationCandidate pairs an overdue ticket with the policy's escalation
// target resolved at scan time.
type EscalationCandidate struct {
	Ticket     domain.Ticket
	EscalateTo string
}

// TicketRepository encapsulates the SLA-owned slice of ticket persistence.
// Every write is a conditional update guarded by the field it sets, so
// concurrent runners race safely: the loser observes claimed=false.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)

	// AssignSLA stamps the policy binding and both deadlines. Claimed is
	// false when the ticket is already bound.
	AssignSLA(ctx context.Context, ticketID string, binding domain.SLABinding) (bool, error)

	// StampFirstResponse sets first_response_at once. When breach is
	// non-nil the guard flag flip and the audit row land in the same
	// transaction as the stamp, and only when the flag actually
	// transitions; a breach already claimed by a sweep inserts nothing.
	StampFirstResponse(ctx context.Context, ticketID string, respondedAt time.Time, breach *domain.SLABreach) (bool, error)

	// RecordResponseBreach / RecordResolutionBreach flip the guard flag
	// and insert the audit row atomically. Claimed is false when another
	// runner already recorded the breach.
	RecordResponseBreach(ctx context.Context, breach *domain.SLABreach) (bool, error)
	RecordResolutionBreach(ctx context.Context, breach *domain.SLABreach) (bool, error)

	// Escalate flips the escalation flag once per ticket.
	Escalate(ctx context.Context, ticketID, escalateTo string, at time.Time) (bool, error)

	ListResponseBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
	ListResolutionBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error)
	ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]EscalationCandidate, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, priority, status, created_at, resolved_at, closed_at,
       sla_policy_id, response_deadline, resolution_deadline,
       sla_response_minutes, sla_resolution_minutes,
       first_response_at, response_breached, resolution_breached,
       escalated, escalated_to, escalated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) AssignSLA(ctx context.Context, ticketID string, binding domain.SLABinding) (bool, error) {
	const query = `
        UPDATE tickets
        SET sla_policy_id=$2, response_deadline=$3, resolution_deadline=$4,
            sla_response_minutes=$5, sla_resolution_minutes=$6, updated_at=NOW()
        WHERE id=$1 AND sla_policy_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query,
		ticketID,
		binding.PolicyID,
		binding.ResponseDeadline,
		binding.ResolutionDeadline,
		binding.ResponseTargetMinutes,
		binding.ResolutionTargetMinutes,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) StampFirstResponse(ctx context.Context, ticketID string, respondedAt time.Time, breach *domain.SLABreach) (bool, error) {
	claimed := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const stampQuery = `
            UPDATE tickets
            SET first_response_at=$2, updated_at=NOW()
            WHERE id=$1 AND first_response_at IS NULL`
		cmd, err := tx.Exec(ctx, stampQuery, ticketID, respondedAt)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		claimed = true
		if breach == nil {
			return nil
		}

		// The audit row rides on the flag transition, not the stamp. A
		// sweep that flagged the breach first wins the claim and this
		// update touches zero rows.
		const flagQuery = `
            UPDATE tickets SET response_breached=true, updated_at=NOW()
            WHERE id=$1 AND response_breached=false`
		cmd, err = tx.Exec(ctx, flagQuery, ticketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		return insertBreach(ctx, tx, breach)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *ticketRepository) RecordResponseBreach(ctx context.Context, breach *domain.SLABreach) (bool, error) {
	return r.recordBreach(ctx, breach, "response_breached")
}

func (r *ticketRepository) RecordResolutionBreach(ctx context.Context, breach *domain.SLABreach) (bool, error) {
	return r.recordBreach(ctx, breach, "resolution_breached")
}

// recordBreach flips the named guard flag and inserts the audit row in one
// transaction. A zero-row update means another runner claimed the breach;
// the transaction commits with no writes.
func (r *ticketRepository) recordBreach(ctx context.Context, breach *domain.SLABreach, guardColumn string) (bool, error) {
	claimed := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
            UPDATE tickets SET ` + guardColumn + `=true, updated_at=NOW()
            WHERE id=$1 AND ` + guardColumn + `=false`
		cmd, err := tx.Exec(ctx, query, breach.TicketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		claimed = true
		return insertBreach(ctx, tx, breach)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *ticketRepository) Escalate(ctx context.Context, ticketID, escalateTo string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET escalated=true, escalated_to=$2, escalated_at=$3, updated_at=NOW()
        WHERE id=$1 AND escalated=false`
	cmd, err := r.pool.Exec(ctx, query, ticketID, escalateTo, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListResponseBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('resolved','closed')
          AND first_response_at IS NULL
          AND response_breached=false
          AND response_deadline IS NOT NULL
          AND response_deadline < $1
        ORDER BY response_deadline
        LIMIT $2`
	return r.listTickets(ctx, query, now, limit)
}

func (r *ticketRepository) ListResolutionBreachCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('resolved','closed')
          AND resolution_breached=false
          AND resolution_deadline IS NOT NULL
          AND resolution_deadline < $1
        ORDER BY resolution_deadline
        LIMIT $2`
	return r.listTickets(ctx, query, now, limit)
}

func (r *ticketRepository) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]EscalationCandidate, error) {
	const query = `
        SELECT t.id, t.priority, t.status, t.created_at, t.resolved_at, t.closed_at,
               t.sla_policy_id, t.response_deadline, t.resolution_deadline,
               t.sla_response_minutes, t.sla_resolution_minutes,
               t.first_response_at, t.response_breached, t.resolution_breached,
               t.escalated, t.escalated_to, t.escalated_at,
               p.escalation_to
        FROM tickets t
        JOIN sla_policies p ON p.id = t.sla_policy_id
        WHERE t.status NOT IN ('resolved','closed')
          AND t.escalated=false
          AND p.escalation_enabled=true
          AND p.escalation_to IS NOT NULL
          AND p.escalation_after_minutes > 0
          AND t.created_at + make_interval(mins => p.escalation_after_minutes) < $1
        ORDER BY t.created_at
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EscalationCandidate
	for rows.Next() {
		var candidate EscalationCandidate
		if err := rows.Scan(
			&candidate.Ticket.ID,
			&candidate.Ticket.Priority,
			&candidate.Ticket.Status,
			&candidate.Ticket.CreatedAt,
			&candidate.Ticket.ResolvedAt,
			&candidate.Ticket.ClosedAt,
			&candidate.Ticket.SLAPolicyID,
			&candidate.Ticket.ResponseDeadline,
			&candidate.Ticket.ResolutionDeadline,
			&candidate.Ticket.ResponseTargetMinutes,
			&candidate.Ticket.ResolutionTargetMinutes,
			&candidate.Ticket.FirstResponseAt,
			&candidate.Ticket.ResponseBreached,
			&candidate.Ticket.ResolutionBreached,
			&candidate.Ticket.Escalated,
			&candidate.Ticket.EscalatedTo,
			&candidate.Ticket.EscalatedAt,
			&candidate.EscalateTo,
		); err != nil {
			return nil, err
		}
		result = append(result, candidate)
	}
	return result, rows.Err()
}

func (r *ticketRepository) listTickets(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.SLAPolicyID,
		&ticket.ResponseDeadline,
		&ticket.ResolutionDeadline,
		&ticket.ResponseTargetMinutes,
		&ticket.ResolutionTargetMinutes,
		&ticket.FirstResponseAt,
		&ticket.ResponseBreached,
		&ticket.ResolutionBreached,
		&ticket.Escalated,
		&ticket.EscalatedTo,
		&ticket.EscalatedAt,
	)
}

func insertBreach(ctx context.Context, tx pgx.Tx, breach *domain.SLABreach) error {
	const query = `
        INSERT INTO sla_breaches (ticket_id, breach_type, policy_id, target_minutes, actual_minutes, breached_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		breach.TicketID,
		breach.BreachType,
		breach.PolicyID,
		breach.TargetMinutes,
		breach.ActualMinutes,
		breach.BreachedAt,
	).Scan(&breach.ID)
}
