package service

import (
	"context"
	"time"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

const atRiskLimit = 100

// ReportService serves the read-only compliance aggregations.
type ReportService struct {
	reports  repository.ReportRepository
	breaches repository.BreachRepository
	cfg      config.SLAConfig
	now      func() time.Time
}

// NewReportService constructs the service.
func NewReportService(reports repository.ReportRepository, breaches repository.BreachRepository, cfg config.SLAConfig) *ReportService {
	return &ReportService{
		reports:  reports,
		breaches: breaches,
		cfg:      cfg,
		now:      time.Now,
	}
}

// PrioritySnapshot is the per-tier compliance breakdown.
type PrioritySnapshot struct {
	Priority             domain.TicketPriority `json:"priority"`
	TrackedTickets       int64                 `json:"tracked_tickets"`
	ResponseRate         float64               `json:"response_rate"`
	ResolutionRate       float64               `json:"resolution_rate"`
	AvgResponseMinutes   *float64              `json:"avg_response_minutes"`
	AvgResolutionMinutes *float64              `json:"avg_resolution_minutes"`
}

// ComplianceSnapshot is the dashboard aggregate.
type ComplianceSnapshot struct {
	TrackedTickets     int64              `json:"tracked_tickets"`
	ResponseRate       float64            `json:"response_rate"`
	ResolutionRate     float64            `json:"resolution_rate"`
	ResponseBreaches   int64              `json:"response_breaches"`
	ResolutionBreaches int64              `json:"resolution_breaches"`
	ByPriority         []PrioritySnapshot `json:"by_priority"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

// GetStats computes the overall and per-priority compliance rates. Rates are
// percentages; an empty denominator reports 100.
func (s *ReportService) GetStats(ctx context.Context) (*ComplianceSnapshot, error) {
	totals, err := s.reports.ComplianceTotals(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.reports.ComplianceByPriority(ctx)
	if err != nil {
		return nil, err
	}
	breachCounts, err := s.breaches.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &ComplianceSnapshot{
		TrackedTickets:     totals.TrackedTickets,
		ResponseRate:       rate(totals.ResponseMet, totals.TrackedTickets),
		ResolutionRate:     rate(totals.ResolutionMet, totals.ResolvedTracked),
		ResponseBreaches:   breachCounts[domain.BreachTypeResponse],
		ResolutionBreaches: breachCounts[domain.BreachTypeResolution],
		GeneratedAt:        s.now(),
	}
	for _, entry := range byPriority {
		snapshot.ByPriority = append(snapshot.ByPriority, PrioritySnapshot{
			Priority:             entry.Priority,
			TrackedTickets:       entry.TrackedTickets,
			ResponseRate:         rate(entry.ResponseMet, entry.TrackedTickets),
			ResolutionRate:       rate(entry.ResolutionMet, entry.ResolvedTracked),
			AvgResponseMinutes:   entry.AvgResponseMinutes,
			AvgResolutionMinutes: entry.AvgResolutionMinutes,
		})
	}
	return snapshot, nil
}

// ListAtRisk returns open, policy-bound tickets whose deadline falls inside
// the configured lookahead windows, so agents get warned before a breach.
func (s *ReportService) ListAtRisk(ctx context.Context) ([]repository.AtRiskTicket, error) {
	responseWindow := time.Duration(s.cfg.AtRiskResponseMinutes) * time.Minute
	resolutionWindow := time.Duration(s.cfg.AtRiskResolutionMinutes) * time.Minute
	return s.reports.ListAtRisk(ctx, s.now(), responseWindow, resolutionWindow, atRiskLimit)
}

// ListBreaches returns the paginated breach journal, newest first.
func (s *ReportService) ListBreaches(ctx context.Context, filter repository.BreachFilter) ([]repository.BreachRecord, error) {
	return s.breaches.ListWithTickets(ctx, filter)
}

func rate(met, total int64) float64 {
	if total == 0 {
		return 100
	}
	return float64(met) / float64(total) * 100
}
