package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// PolicyStore resolves SLA policies. The engine only reads policies; the
// administrative surface owns their lifecycle.
type PolicyStore interface {
	GetActivePolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	ListActive(ctx context.Context) ([]domain.SLAPolicy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates the postgres-backed policy store.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyStore {
	return &policyRepository{pool: pool}
}

const policyColumns = `id, priority, response_time_minutes, resolution_time_minutes,
       escalation_enabled, escalation_after_minutes, escalation_to, is_active, created_at, updated_at`

func (r *policyRepository) GetActivePolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT ` + policyColumns + `
        FROM sla_policies WHERE priority=$1 AND is_active=true`
	policy, err := r.fetchSingle(ctx, query, priority)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPolicyNotFound
	}
	return policy, err
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	const query = `
        SELECT ` + policyColumns + `
        FROM sla_policies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *policyRepository) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT ` + policyColumns + `
        FROM sla_policies WHERE is_active=true ORDER BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := scanPolicy(rows, &policy); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func (r *policyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	if err := scanPolicy(r.pool.QueryRow(ctx, query, arg), &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func scanPolicy(row pgx.Row, policy *domain.SLAPolicy) error {
	return row.Scan(
		&policy.ID,
		&policy.Priority,
		&policy.ResponseTimeMinutes,
		&policy.ResolutionTimeMinutes,
		&policy.EscalationEnabled,
		&policy.EscalationAfterMinutes,
		&policy.EscalationTo,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
}
