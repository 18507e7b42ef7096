package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/repository"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

// UserService manages the operator hierarchy: users are created only
// by a strictly-higher role and are never re-parented afterwards.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// UserCreateInput describes subordinate creation payload.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Zone     string
}

// CreateSubordinate creates a user one or more tiers below the actor.
// NodalOfficers can only create ProcessingStaff, who inherit the
// officer's zone. HigherAuthority supplies the zone explicitly.
func (s *UserService) CreateSubordinate(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if !input.Role.IsValid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if !actor.Role.Outranks(input.Role) {
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			fmt.Sprintf("%s cannot create %s accounts; only a strictly higher role can", roleLabel(actor.Role), roleLabel(input.Role)))
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	var zone *string
	switch actor.Role {
	case domain.RoleNodalOfficer:
		// Staff inherit their creating officer's zone.
		zone = actor.Zone
	case domain.RoleHigherAuthority:
		trimmed := strings.TrimSpace(input.Zone)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("zone required when Higher Authority creates accounts", nil)
		}
		zone = &trimmed
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("EMAIL_TAKEN", "email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		Role:         input.Role,
		Zone:         zone,
		CreatedBy:    &actor.ID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns users visible to the actor: HigherAuthority sees
// everyone, NodalOfficers see their own zone.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	switch actor.Role {
	case domain.RoleHigherAuthority:
	case domain.RoleNodalOfficer:
		filter.Zone = actor.Zone
	default:
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			"Processing Staff cannot list users")
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Deactivate disables a subordinate account. HigherAuthority may
// deactivate anyone below them; NodalOfficers only staff in their zone.
func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.Outranks(target.Role) {
		return nil, apperrors.NewForbidden(apperrors.CodeInsufficientPermissions,
			"only a strictly higher role can deactivate an account")
	}
	if actor.Role == domain.RoleNodalOfficer && (target.Zone == nil || !actor.InZone(*target.Zone)) {
		return nil, apperrors.NewForbidden(apperrors.CodeZoneAccessDenied,
			"Nodal Officers can only deactivate staff in their own zone")
	}
	target.Active = false
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}
