package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/events"
	"github.com/spec-kit/lead-service/internal/policy"
	"github.com/spec-kit/lead-service/internal/repository"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

// StageProgress is one row of the progress view.
type StageProgress struct {
	Stage       int        `json:"stage"`
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// ProgressView is the read model returned by GetProgress.
type ProgressView struct {
	LeadID          string          `json:"lead_id"`
	CurrentStage    int             `json:"current_stage"`
	PercentComplete int             `json:"percent_complete"`
	Stages          []StageProgress `json:"stages"`
}

// ProgressService is the five-stage state machine: stage advances are
// role-ceilinged, ownership-gated and monotonic. Stage regression only
// happens through the coarse Rejected status, never through this path.
type ProgressService struct {
	leads      repository.LeadRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
}

// ProgressDependencies bundles repositories.
type ProgressDependencies struct {
	LeadRepo   repository.LeadRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
}

// NewProgressService creates the service.
func NewProgressService(deps ProgressDependencies) *ProgressService {
	return &ProgressService{
		leads:      deps.LeadRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Advance validates and applies a stage transition. Checks run in a
// fixed order: stage range, role ceiling, ownership/zone, monotonicity.
// The storage update is conditional on the previously observed stage so
// concurrent advances on one lead serialize to a single winner.
func (s *ProgressService) Advance(ctx context.Context, actor *domain.User, leadID string, targetStage int, notes string) (*domain.Lead, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if targetStage < domain.MinProgressStage || targetStage > domain.MaxProgressStage {
		return nil, apperrors.NewInvalidInput(apperrors.CodeInvalidStage,
			fmt.Sprintf("progress stage must be between %d and %d", domain.MinProgressStage, domain.MaxProgressStage))
	}
	if ceiling := policy.MaxProgressStage(actor.Role); targetStage > ceiling {
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			fmt.Sprintf("%s can only update stages %d-%d. Stage %d requires %s approval",
				roleLabel(actor.Role), domain.MinProgressStage, ceiling, targetStage, roleLabel(requiredRoleForStage(targetStage))))
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, apperrors.MapError(err)
	}

	switch actor.Role {
	case domain.RoleProcessingStaff:
		if !lead.AssignedToUser(actor.ID) {
			return nil, apperrors.NewForbidden(apperrors.CodeAccessDenied,
				"Processing Staff can only update leads assigned to them")
		}
	case domain.RoleNodalOfficer:
		if !actor.InZone(lead.Zone) {
			return nil, apperrors.NewForbidden(apperrors.CodeZoneAccessDenied,
				fmt.Sprintf("lead belongs to zone %s outside your zone", lead.Zone))
		}
	}

	if targetStage > lead.ProgressStage+1 {
		return nil, apperrors.NewConflict(apperrors.CodeInvalidProgression,
			fmt.Sprintf("cannot jump from stage %d to stage %d; stages advance at most one at a time",
				lead.ProgressStage, targetStage), nil)
	}

	now := time.Now()
	progress := make(map[int]domain.StageDetail, len(lead.Progress)+1)
	for stage, detail := range lead.Progress {
		progress[stage] = detail
	}
	progress[targetStage] = domain.StageDetail{
		Completed:   true,
		CompletedAt: &now,
		CompletedBy: actor.ID,
		Notes:       notes,
	}

	// Stage never regresses: re-recording an earlier stage keeps the
	// current position.
	newStage := lead.ProgressStage
	if targetStage > newStage {
		newStage = targetStage
	}

	status := lead.Status
	switch {
	case newStage == domain.MaxProgressStage:
		status = domain.LeadStatusCompleted
	case newStage > domain.MinProgressStage:
		status = domain.LeadStatusInProgress
	}

	if err := s.leads.AdvanceStage(ctx, lead.ID, lead.ProgressStage, newStage, status, progress); err != nil {
		if errors.Is(err, repository.ErrStageConflict) {
			return nil, apperrors.NewConflict(apperrors.CodeInvalidProgression,
				"lead stage changed concurrently, reload and retry", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.audit.Create(ctx, &domain.AuditEntry{
		LeadID:  lead.ID,
		Action:  domain.AuditActionStageAdvanced,
		ActorID: actor.ID,
		Details: map[string]any{
			"previous_stage": lead.ProgressStage,
			"new_stage":      newStage,
			"stage_name":     domain.StageName(targetStage),
			"notes":          notes,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishStageAdvanced(ctx, actor, lead.ID, lead.ProgressStage, newStage, notes)

	lead.Progress = progress
	lead.ProgressStage = newStage
	lead.Status = status
	lead.UpdatedAt = now
	return lead, nil
}

// GetProgress returns the staged progress view, gated by the same
// visibility rule as any other lead read.
func (s *ProgressService) GetProgress(ctx context.Context, actor *domain.User, leadID string) (*ProgressView, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanViewLead(actor, lead) {
		return nil, apperrors.NewForbidden(apperrors.CodeAccessDenied, "you do not have access to this lead")
	}

	view := &ProgressView{
		LeadID:          lead.ID,
		CurrentStage:    lead.ProgressStage,
		PercentComplete: lead.PercentComplete(),
		Stages:          make([]StageProgress, 0, domain.MaxProgressStage),
	}
	for stage := domain.MinProgressStage; stage <= domain.MaxProgressStage; stage++ {
		detail := lead.Progress[stage]
		view.Stages = append(view.Stages, StageProgress{
			Stage:       stage,
			Name:        domain.StageName(stage),
			Completed:   detail.Completed,
			CompletedAt: detail.CompletedAt,
			CompletedBy: detail.CompletedBy,
			Notes:       detail.Notes,
		})
	}
	return view, nil
}

func (s *ProgressService) publishStageAdvanced(ctx context.Context, actor *domain.User, leadID string, previous, current int, notes string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLeadStageAdvanced,
		LeadID:    leadID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload: events.LeadStageAdvancedPayload{
			PreviousStage: previous,
			NewStage:      current,
			StageName:     domain.StageName(current),
			Notes:         notes,
		},
	})
}

func roleLabel(role domain.Role) string {
	switch role {
	case domain.RoleHigherAuthority:
		return "Higher Authority"
	case domain.RoleNodalOfficer:
		return "Nodal Officers"
	case domain.RoleProcessingStaff:
		return "Processing Staff"
	}
	return string(role)
}

// requiredRoleForStage names the weakest role whose ceiling covers the stage.
func requiredRoleForStage(stage int) domain.Role {
	switch {
	case stage <= policy.MaxProgressStage(domain.RoleProcessingStaff):
		return domain.RoleProcessingStaff
	case stage <= policy.MaxProgressStage(domain.RoleNodalOfficer):
		return domain.RoleNodalOfficer
	default:
		return domain.RoleHigherAuthority
	}
}
