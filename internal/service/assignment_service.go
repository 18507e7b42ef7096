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

// AssignmentStrategy selects how an officer is chosen.
type AssignmentStrategy string

const (
	StrategyManual AssignmentStrategy = "manual"
	StrategyAuto   AssignmentStrategy = "auto"
)

// Penalty added to a candidate whose zone differs from the lead's.
const proximityPenalty = 10

// AssignmentCandidate is the transient per-officer evaluation computed
// during auto-assignment. Lowest TotalScore wins.
type AssignmentCandidate struct {
	Officer           *domain.User
	ActiveLeads       int
	HighPriorityLeads int
	ProximityPenalty  int
	TotalScore        float64
}

// AssignmentResult reports the bound officer and the strategy applied.
type AssignmentResult struct {
	Officer  *domain.User
	Strategy AssignmentStrategy
}

// AssignmentService binds unassigned leads to nodal officers, either by
// explicit choice or by the balance+proximity weighted formula.
type AssignmentService struct {
	leads      repository.LeadRepository
	users      repository.UserRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	LeadRepo   repository.LeadRepository
	UserRepo   repository.UserRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		leads:      deps.LeadRepo,
		users:      deps.UserRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Assign binds the lead to exactly one officer. Preconditions are
// checked in order, first failure wins; the lead is untouched on any
// failure path. The unassigned guard is re-checked atomically at the
// storage layer, so of two concurrent calls exactly one succeeds.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, leadID string, strategy AssignmentStrategy, officerID string) (*AssignmentResult, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if actor.Role != domain.RoleHigherAuthority && actor.Role != domain.RoleNodalOfficer {
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			"only Nodal Officers and Higher Authority can assign leads")
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
		}
		return nil, apperrors.MapError(err)
	}
	if lead.Assigned() {
		return nil, apperrors.NewConflict(apperrors.CodeAlreadyAssigned,
			"lead is already assigned to an officer", map[string]any{"officer_id": *lead.AssignedTo})
	}
	if actor.Role == domain.RoleNodalOfficer && !actor.InZone(lead.Zone) {
		return nil, apperrors.NewForbidden(apperrors.CodeZoneAccessDenied,
			fmt.Sprintf("lead belongs to zone %s outside your zone", lead.Zone))
	}

	targetZone := lead.Zone
	if actor.Role != domain.RoleHigherAuthority {
		targetZone = *actor.Zone
	}

	if strategy == "" {
		strategy = StrategyAuto
		if officerID != "" {
			strategy = StrategyManual
		}
	}

	var officer *domain.User
	switch strategy {
	case StrategyManual:
		officer, err = s.resolveManualOfficer(ctx, actor, targetZone, officerID)
	case StrategyAuto:
		officer, err = s.selectOfficer(ctx, lead, targetZone)
	default:
		return nil, apperrors.NewValidationError("unknown assignment strategy", map[string]any{"strategy": strategy})
	}
	if err != nil {
		return nil, err
	}

	// A Higher Authority override moves the lead into the officer's
	// zone; the officer's zone tag always wins over the lead's.
	newZone := lead.Zone
	newRegion := lead.Region
	if officer.Zone != nil && *officer.Zone != lead.Zone {
		newZone = *officer.Zone
		newRegion = *officer.Zone
	}

	if err := s.leads.AssignOfficer(ctx, lead.ID, officer.ID, newZone, newRegion, domain.LeadStatusDocumentCollection); err != nil {
		if errors.Is(err, repository.ErrLeadAlreadyAssigned) {
			return nil, apperrors.NewConflict(apperrors.CodeAlreadyAssigned,
				"lead was assigned by a concurrent request", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.recordAssignment(ctx, actor, lead, officer, strategy); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishAssigned(ctx, actor, lead.ID, officer.ID, strategy, newZone)

	return &AssignmentResult{Officer: officer, Strategy: strategy}, nil
}

// resolveManualOfficer validates an explicitly requested officer.
func (s *AssignmentService) resolveManualOfficer(ctx context.Context, actor *domain.User, targetZone, officerID string) (*domain.User, error) {
	if officerID == "" {
		return nil, apperrors.NewValidationError("officer_id required for manual assignment", nil)
	}
	officer, err := s.users.GetByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden(apperrors.CodeInvalidOfficer, "requested officer does not exist")
		}
		return nil, apperrors.MapError(err)
	}
	if !officer.Active || officer.Role != domain.RoleNodalOfficer {
		return nil, apperrors.NewForbidden(apperrors.CodeInvalidOfficer,
			"requested user is not an active Nodal Officer")
	}
	if !policy.CanAssignCrossZone(actor) && !officer.InZone(targetZone) {
		return nil, apperrors.NewForbidden(apperrors.CodeInvalidOfficer,
			fmt.Sprintf("officer belongs to a different zone; only Higher Authority can assign across zones (target zone %s)", targetZone))
	}
	return officer, nil
}

// selectOfficer runs the auto strategy: lowest combined load wins.
// The pool arrives ordered by officer id, so equal scores resolve to
// the lowest id deterministically.
func (s *AssignmentService) selectOfficer(ctx context.Context, lead *domain.Lead, targetZone string) (*domain.User, error) {
	pool, err := s.users.FindActiveByRoleAndZone(ctx, domain.RoleNodalOfficer, targetZone)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(pool) == 0 {
		return nil, apperrors.NewConflict(apperrors.CodeNoAvailableOfficers,
			fmt.Sprintf("no active nodal officers available in zone %s", targetZone), nil)
	}

	var best *AssignmentCandidate
	for i := range pool {
		candidate, err := s.evaluateCandidate(ctx, &pool[i], lead)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if best == nil || candidate.TotalScore < best.TotalScore {
			best = candidate
		}
	}
	return best.Officer, nil
}

// evaluateCandidate computes the weighted assignment score. Balance is
// the primary signal; proximity keeps leads near their zone; the
// half-weighted high-priority load keeps hard cases spread out without
// dominating balance.
func (s *AssignmentService) evaluateCandidate(ctx context.Context, officer *domain.User, lead *domain.Lead) (*AssignmentCandidate, error) {
	active, err := s.leads.CountActiveByOfficer(ctx, officer.ID)
	if err != nil {
		return nil, err
	}
	highPriority, err := s.leads.CountHighPriorityActiveByOfficer(ctx, officer.ID)
	if err != nil {
		return nil, err
	}
	penalty := 0
	if !officer.InZone(lead.Zone) {
		penalty = proximityPenalty
	}
	return &AssignmentCandidate{
		Officer:           officer,
		ActiveLeads:       active,
		HighPriorityLeads: highPriority,
		ProximityPenalty:  penalty,
		TotalScore:        float64(active) + float64(penalty) + float64(highPriority)*0.5,
	}, nil
}

func (s *AssignmentService) recordAssignment(ctx context.Context, actor *domain.User, lead *domain.Lead, officer *domain.User, strategy AssignmentStrategy) error {
	return s.audit.Create(ctx, &domain.AuditEntry{
		LeadID:  lead.ID,
		Action:  domain.AuditActionAssigned,
		ActorID: actor.ID,
		Details: map[string]any{
			"strategy":     string(strategy),
			"officer_id":   officer.ID,
			"officer_name": officer.Name,
		},
	})
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actor *domain.User, leadID, officerID string, strategy AssignmentStrategy, zone string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLeadAssigned,
		LeadID:    leadID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload: events.LeadAssignedPayload{
			OfficerID: officerID,
			Strategy:  string(strategy),
			Zone:      zone,
		},
	})
}
