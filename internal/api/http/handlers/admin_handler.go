package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
)

// AdminHandler exposes operational endpoints: manual sweep trigger and
// policy cache invalidation after the admin surface edits policies.
type AdminHandler struct {
	sweeper     *service.SweeperService
	policyCache *repository.CachedPolicyStore
}

// NewAdminHandler constructs handler.
func NewAdminHandler(sweeper *service.SweeperService, policyCache *repository.CachedPolicyStore) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, policyCache: policyCache}
}

// TriggerSweep POST /api/admin/sweep.
func (h *AdminHandler) TriggerSweep(c *fiber.Ctx) error {
	summary, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		ResponseBreaches:   summary.ResponseBreaches,
		ResolutionBreaches: summary.ResolutionBreaches,
		Escalations:        summary.Escalations,
		Errors:             summary.Errors,
	}})
}

// RefreshPolicies POST /api/admin/policies/refresh.
func (h *AdminHandler) RefreshPolicies(c *fiber.Ctx) error {
	if err := h.policyCache.Invalidate(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"refreshed": true}})
}
