package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// LifecycleHandler receives ticket lifecycle hooks from the surrounding
// ticket/comment subsystem.
type LifecycleHandler struct {
	assigner *service.AssignerService
	recorder *service.RecorderService
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler(assigner *service.AssignerService, recorder *service.RecorderService) *LifecycleHandler {
	return &LifecycleHandler{assigner: assigner, recorder: recorder}
}

// TicketCreated POST /internal/tickets/created.
func (h *LifecycleHandler) TicketCreated(c *fiber.Ctx) error {
	var req dto.TicketCreatedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	if !domain.ValidPriority(req.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
	}

	binding, err := h.assigner.AssignDeadlines(c.UserContext(), req.TicketID, req.Priority)
	if err != nil {
		return err
	}

	resp := dto.BindingResponse{Tracked: binding != nil}
	if binding != nil {
		resp.PolicyID = &binding.PolicyID
		resp.ResponseDeadline = &binding.ResponseDeadline
		resp.ResolutionDeadline = &binding.ResolutionDeadline
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// FirstContact POST /internal/tickets/first-contact.
func (h *LifecycleHandler) FirstContact(c *fiber.Ctx) error {
	var req dto.TicketEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}

	result, err := h.recorder.RecordFirstResponse(c.UserContext(), req.TicketID)
	if err != nil {
		return err
	}

	resp := dto.FirstResponseResponse{Recorded: result != nil}
	if result != nil {
		resp.RespondedAt = &result.RespondedAt
		resp.WasBreached = result.WasBreached
	}
	return c.JSON(fiber.Map{"data": resp})
}

// TicketResolved POST /internal/tickets/resolved.
func (h *LifecycleHandler) TicketResolved(c *fiber.Ctx) error {
	var req dto.TicketEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}

	breached, err := h.recorder.RecordResolution(c.UserContext(), req.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"resolution_breached": breached}})
}
