package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-service/internal/api/dto"
	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/service"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

// LeadWorkflowHandler covers assignment, staged progress and the audit
// trail, the operator-facing workflow endpoints.
type LeadWorkflowHandler struct {
	assignments *service.AssignmentService
	progress    *service.ProgressService
	leads       *service.LeadService
}

// NewLeadWorkflowHandler constructs handler.
func NewLeadWorkflowHandler(assignments *service.AssignmentService, progress *service.ProgressService, leads *service.LeadService) *LeadWorkflowHandler {
	return &LeadWorkflowHandler{assignments: assignments, progress: progress, leads: leads}
}

// AssignLead POST /leads/:id/assign.
func (h *LeadWorkflowHandler) AssignLead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.assignments.Assign(c.Context(), actor, c.Params("id"), service.AssignmentStrategy(req.Strategy), req.OfficerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{
		LeadID:    c.Params("id"),
		OfficerID: result.Officer.ID,
		Officer:   result.Officer.Name,
		Strategy:  string(result.Strategy),
	}})
}

// AdvanceStage POST /leads/:id/progress.
func (h *LeadWorkflowHandler) AdvanceStage(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AdvanceStageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	lead, err := h.progress.Advance(c.Context(), actor, c.Params("id"), req.Stage, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadDetail(lead)})
}

// GetProgress GET /leads/:id/progress.
func (h *LeadWorkflowHandler) GetProgress(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	view, err := h.progress.GetProgress(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// ListAudit GET /leads/:id/audit.
func (h *LeadWorkflowHandler) ListAudit(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	entries, err := h.leads.ListAudit(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditEntries(entries)})
}
