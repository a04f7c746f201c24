package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
)

// ReportsHandler exposes compliance aggregates for the dashboard collaborator.
type ReportsHandler struct {
	reports  *service.ReportService
	policies repository.PolicyStore
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, policies repository.PolicyStore) *ReportsHandler {
	return &ReportsHandler{reports: reports, policies: policies}
}

// GetStats GET /api/sla/stats.
func (h *ReportsHandler) GetStats(c *fiber.Ctx) error {
	snapshot, err := h.reports.GetStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snapshot})
}

// ListAtRisk GET /api/sla/at-risk.
func (h *ReportsHandler) ListAtRisk(c *fiber.Ctx) error {
	entries, err := h.reports.ListAtRisk(c.UserContext())
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.AtRiskResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AtRiskResponse{
			TicketID:    entry.TicketID,
			Priority:    entry.Priority,
			RiskType:    entry.RiskType,
			DueAt:       entry.DueAt,
			MinutesLeft: int(entry.DueAt.Sub(now).Minutes()),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListBreaches GET /api/sla/breaches.
func (h *ReportsHandler) ListBreaches(c *fiber.Ctx) error {
	filter := parseBreachQuery(c)
	records, err := h.reports.ListBreaches(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.BreachResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.BreachResponse{
			ID:             record.Breach.ID,
			TicketID:       record.Breach.TicketID,
			BreachType:     record.Breach.BreachType,
			PolicyID:       record.Breach.PolicyID,
			TargetMinutes:  record.Breach.TargetMinutes,
			ActualMinutes:  record.Breach.ActualMinutes,
			BreachedAt:     record.Breach.BreachedAt,
			TicketPriority: record.TicketPriority,
			TicketStatus:   record.TicketStatus,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPolicies GET /api/sla/policies.
func (h *ReportsHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.policies.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for _, policy := range policies {
		items = append(items, dto.PolicyResponse{
			ID:                     policy.ID,
			Priority:               policy.Priority,
			ResponseTimeMinutes:    policy.ResponseTimeMinutes,
			ResolutionTimeMinutes:  policy.ResolutionTimeMinutes,
			EscalationEnabled:      policy.EscalationEnabled,
			EscalationAfterMinutes: policy.EscalationAfterMinutes,
			EscalationTo:           policy.EscalationTo,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseBreachQuery(c *fiber.Ctx) repository.BreachFilter {
	filter := repository.BreachFilter{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("type"); raw != "" {
		breachType := domain.BreachType(raw)
		filter.BreachType = &breachType
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(raw)
		filter.Priority = &priority
	}
	if raw := c.Query("ticket_id"); raw != "" {
		ticketID := raw
		filter.TicketID = &ticketID
	}
	return filter
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
