package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/events"
	"github.com/spec-kit/lead-service/internal/policy"
	"github.com/spec-kit/lead-service/internal/repository"
	"github.com/spec-kit/lead-service/internal/scoring"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

// LeadService coordinates lead lifecycle outside of assignment and
// staged progress: creation with scoring, reads, field updates and
// coarse status changes.
type LeadService struct {
	leads      repository.LeadRepository
	audit      repository.AuditRepository
	scorer     *scoring.Scorer
	dispatcher events.Dispatcher
}

// LeadDependencies bundles collaborators for the lead service.
type LeadDependencies struct {
	LeadRepo   repository.LeadRepository
	AuditRepo  repository.AuditRepository
	Scorer     *scoring.Scorer
	Dispatcher events.Dispatcher
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	return &LeadService{
		leads:      deps.LeadRepo,
		audit:      deps.AuditRepo,
		scorer:     deps.Scorer,
		dispatcher: deps.Dispatcher,
	}
}

// LeadCreateInput describes lead creation payload. Fields arrive
// already reconciled to canonical names by the transport layer.
type LeadCreateInput struct {
	Name        string
	Email       string
	Phone       string
	Zone        string
	Region      string
	ProductType string
	Occupation  string
	CreditScore int
	Salary      float64
	Age         int
	LoanAmount  float64
}

// LeadUpdateInput carries optional field updates; nil means unchanged.
type LeadUpdateInput struct {
	Name        *string
	Email       *string
	Phone       *string
	ProductType *string
	Occupation  *string
	CreditScore *int
	Salary      *float64
	Age         *int
	LoanAmount  *float64
}

// LeadListInput describes listing filters before role scoping.
type LeadListInput struct {
	Zone        *string
	Statuses    []domain.LeadStatus
	MinScore    *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CreateLead registers a new application and scores it. The scorer
/// never fails the creation: a remote outage degrades to the heuristic.
// Non-HigherAuthority creators are pinned to their own zone.
func (s *LeadService) CreateLead(ctx context.Context, actor *domain.User, input LeadCreateInput) (*domain.Lead, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}

	zone := input.Zone
	if actor.Role != domain.RoleHigherAuthority {
		zone = *actor.Zone
	}
	if strings.TrimSpace(zone) == "" {
		return nil, apperrors.NewValidationError("zone required", nil)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}

	region := input.Region
	if region == "" {
		region = zone
	}

	score, insight := s.scorer.Score(ctx, scoring.LeadFeatures{
		CreditScore: input.CreditScore,
		Salary:      input.Salary,
		Age:         input.Age,
		ProductType: input.ProductType,
		Occupation:  input.Occupation,
		Region:      region,
		LoanAmount:  input.LoanAmount,
	})

	lead := &domain.Lead{
		Reference:     generateLeadReference(),
		Name:          strings.TrimSpace(input.Name),
		Email:         strings.TrimSpace(input.Email),
		Phone:         strings.TrimSpace(input.Phone),
		Zone:          zone,
		Region:        region,
		ProductType:   input.ProductType,
		Occupation:    input.Occupation,
		CreditScore:   input.CreditScore,
		Salary:        input.Salary,
		Age:           input.Age,
		LoanAmount:    input.LoanAmount,
		Status:        domain.LeadStatusNew,
		ProgressStage: domain.MinProgressStage,
		Progress:      map[int]domain.StageDetail{},
		PriorityScore: score,
		Insight:       insight,
		CreatedBy:     actor.ID,
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.audit.Create(ctx, &domain.AuditEntry{
		LeadID:  lead.ID,
		Action:  domain.AuditActionCreated,
		ActorID: actor.ID,
		Details: map[string]any{
			"zone":           lead.Zone,
			"product_type":   lead.ProductType,
			"priority_score": lead.PriorityScore,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, lead.ID, events.EventLeadCreated, events.LeadCreatedPayload{
		Zone:          lead.Zone,
		ProductType:   lead.ProductType,
		PriorityScore: lead.PriorityScore,
		Status:        lead.Status,
	})
	s.publish(ctx, actor, lead.ID, events.EventLeadScored, events.LeadScoredPayload{
		PriorityScore: lead.PriorityScore,
		Insight:       lead.Insight,
	})
	return lead, nil
}

// GetLead fetches a lead through the visibility gate.
func (s *LeadService) GetLead(ctx context.Context, actor *domain.User, leadID string) (*domain.Lead, error) {
	lead, err := s.fetch(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewLead(actor, lead) {
		return nil, apperrors.NewForbidden(apperrors.CodeAccessDenied, "you do not have access to this lead")
	}
	return lead, nil
}

// ListLeads returns leads visible to the actor. NodalOfficers are
// pinned to their zone, ProcessingStaff to their own assignments.
func (s *LeadService) ListLeads(ctx context.Context, actor *domain.User, input LeadListInput) ([]domain.Lead, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	filter := repository.LeadFilter{
		Zone:        input.Zone,
		Statuses:    input.Statuses,
		MinScore:    input.MinScore,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}
	switch actor.Role {
	case domain.RoleNodalOfficer:
		filter.Zone = actor.Zone
	case domain.RoleProcessingStaff:
		filter.AssignedTo = &actor.ID
		filter.Zone = nil
	}
	leads, err := s.leads.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return leads, nil
}

// UpdateFields applies per-field gated updates. Changing a scoring
// input recomputes the priority score.
func (s *LeadService) UpdateFields(ctx context.Context, actor *domain.User, leadID string, input LeadUpdateInput) (*domain.Lead, error) {
	lead, err := s.fetch(ctx, leadID)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 4)
	rescore := false

	apply := func(field string, set func(), scoringInput bool) error {
		if !policy.CanMutateLeadField(actor, lead, field) {
			return apperrors.NewForbidden(apperrors.CodeAccessDenied,
				fmt.Sprintf("your role cannot modify field %q on this lead", field))
		}
		set()
		changed = append(changed, field)
		if scoringInput {
			rescore = true
		}
		return nil
	}

	if input.Name != nil {
		if err := apply(policy.FieldName, func() { lead.Name = *input.Name }, false); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		if err := apply(policy.FieldEmail, func() { lead.Email = *input.Email }, false); err != nil {
			return nil, err
		}
	}
	if input.Phone != nil {
		if err := apply(policy.FieldPhone, func() { lead.Phone = *input.Phone }, false); err != nil {
			return nil, err
		}
	}
	if input.ProductType != nil {
		if err := apply(policy.FieldProductType, func() { lead.ProductType = *input.ProductType }, true); err != nil {
			return nil, err
		}
	}
	if input.Occupation != nil {
		if err := apply(policy.FieldOccupation, func() { lead.Occupation = *input.Occupation }, true); err != nil {
			return nil, err
		}
	}
	if input.CreditScore != nil {
		if err := apply(policy.FieldCreditScore, func() { lead.CreditScore = *input.CreditScore }, true); err != nil {
			return nil, err
		}
	}
	if input.Salary != nil {
		if err := apply(policy.FieldSalary, func() { lead.Salary = *input.Salary }, true); err != nil {
			return nil, err
		}
	}
	if input.Age != nil {
		if err := apply(policy.FieldAge, func() { lead.Age = *input.Age }, true); err != nil {
			return nil, err
		}
	}
	if input.LoanAmount != nil {
		if err := apply(policy.FieldLoanAmount, func() { lead.LoanAmount = *input.LoanAmount }, true); err != nil {
			return nil, err
		}
	}
	if len(changed) == 0 {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	if rescore {
		lead.PriorityScore, lead.Insight = s.scorer.Score(ctx, scoring.LeadFeatures{
			CreditScore: lead.CreditScore,
			Salary:      lead.Salary,
			Age:         lead.Age,
			ProductType: lead.ProductType,
			Occupation:  lead.Occupation,
			Region:      lead.Region,
			LoanAmount:  lead.LoanAmount,
		})
	}

	if err := s.leads.UpdateFields(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.Create(ctx, &domain.AuditEntry{
		LeadID:  lead.ID,
		Action:  domain.AuditActionFieldsUpdated,
		ActorID: actor.ID,
		Details: map[string]any{"fields": changed, "rescored": rescore},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if rescore {
		s.publish(ctx, actor, lead.ID, events.EventLeadScored, events.LeadScoredPayload{
			PriorityScore: lead.PriorityScore,
			Insight:       lead.Insight,
		})
	}
	return lead, nil
}

// UpdateStatus applies a coarse status change through the static
// role/status permission table. Rejection is always available to an
// authorized mutator; it is the one terminal override that bypasses
// stage ordering.
func (s *LeadService) UpdateStatus(ctx context.Context, actor *domain.User, leadID string, status domain.LeadStatus, comment string) (*domain.Lead, error) {
	if !domain.IsKnownStatus(status) {
		return nil, apperrors.NewValidationError("unknown lead status", map[string]any{"status": status})
	}
	lead, err := s.fetch(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateLeadField(actor, lead, policy.FieldStatus) {
		return nil, apperrors.NewForbidden(apperrors.CodeAccessDenied, "you do not have access to this lead")
	}
	if !domain.CanSetStatus(actor.Role, status) {
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			fmt.Sprintf("%s may set statuses up to %s; %s requires a higher role",
				roleLabel(actor.Role), domain.StatusCeiling(actor.Role), status))
	}

	oldStatus := lead.Status
	if err := s.leads.UpdateStatus(ctx, lead.ID, status); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.audit.Create(ctx, &domain.AuditEntry{
		LeadID:  lead.ID,
		Action:  domain.AuditActionStatusChanged,
		ActorID: actor.ID,
		Details: map[string]any{
			"old_status": oldStatus,
			"new_status": status,
			"comment":    comment,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, lead.ID, events.EventLeadStatusChanged, events.LeadStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
		Comment:   comment,
	})
	lead.Status = status
	return lead, nil
}

// ListAudit returns the audit trail through the visibility gate.
func (s *LeadService) ListAudit(ctx context.Context, actor *domain.User, leadID string) ([]domain.AuditEntry, error) {
	lead, err := s.fetch(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewLead(actor, lead) {
		return nil, apperrors.NewForbidden(apperrors.CodeAccessDenied, "you do not have access to this lead")
	}
	entries, err := s.audit.ListByLead(ctx, lead.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *LeadService) fetch(ctx context.Context, leadID string) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}

func (s *LeadService) publish(ctx context.Context, actor *domain.User, leadID string, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LeadID:    leadID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func generateLeadReference() string {
	return "LD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
