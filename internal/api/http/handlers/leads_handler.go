package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-service/internal/api/dto"
	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/service"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

// LeadsHandler covers lead CRUD and coarse status changes.
type LeadsHandler struct {
	service *service.LeadService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(leadService *service.LeadService) *LeadsHandler {
	return &LeadsHandler{service: leadService}
}

// CreateLead POST /leads.
func (h *LeadsHandler) CreateLead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	lead, err := h.service.CreateLead(c.Context(), actor, req.Canonical())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewLeadDetail(lead)})
}

// ListLeads GET /leads.
func (h *LeadsHandler) ListLeads(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	input, err := parseLeadListQuery(c)
	if err != nil {
		return err
	}
	leads, err := h.service.ListLeads(c.Context(), actor, input)
	if err != nil {
		return err
	}
	items := make([]dto.LeadSummary, 0, len(leads))
	for i := range leads {
		items = append(items, dto.NewLeadSummary(&leads[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetLead GET /leads/:id.
func (h *LeadsHandler) GetLead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	lead, err := h.service.GetLead(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadDetail(lead)})
}

// UpdateLead PATCH /leads/:id.
func (h *LeadsHandler) UpdateLead(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	lead, err := h.service.UpdateFields(c.Context(), actor, c.Params("id"), service.LeadUpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ProductType: req.ProductType,
		Occupation:  req.Occupation,
		CreditScore: req.CreditScore,
		Salary:      req.Salary,
		Age:         req.Age,
		LoanAmount:  req.LoanAmount,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadDetail(lead)})
}

// UpdateStatus PATCH /leads/:id/status.
func (h *LeadsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	status := domain.LeadStatus(strings.ToUpper(req.Status))
	lead, err := h.service.UpdateStatus(c.Context(), actor, c.Params("id"), status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadDetail(lead)})
}

func parseLeadListQuery(c *fiber.Ctx) (service.LeadListInput, error) {
	input := service.LeadListInput{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if zone := c.Query("zone"); zone != "" {
		input.Zone = &zone
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.LeadStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !domain.IsKnownStatus(status) {
				return input, apperrors.NewValidationError("unknown lead status", map[string]any{"status": part})
			}
			input.Statuses = append(input.Statuses, status)
		}
	}
	if raw := c.Query("min_score"); raw != "" {
		minScore := c.QueryInt("min_score")
		input.MinScore = &minScore
	}
	if raw := c.Query("created_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return input, apperrors.NewValidationError("created_from must be RFC3339", nil)
		}
		input.CreatedFrom = &from
	}
	if raw := c.Query("created_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return input, apperrors.NewValidationError("created_to must be RFC3339", nil)
		}
		input.CreatedTo = &to
	}
	return input, nil
}
