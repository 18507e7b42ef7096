// Package policy holds the pure authorization predicates for the
// role/zone visibility model. Predicates only return booleans; callers
// translate a false into the appropriate forbidden error.
package policy

import "github.com/spec-kit/lead-service/internal/domain"

// Mutable lead field names accepted by CanMutateLeadField.
const (
	FieldStatus        = "status"
	FieldProgressStage = "progress_stage"
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldProductType   = "product_type"
	FieldOccupation    = "occupation"
	FieldLoanAmount    = "loan_amount"
	FieldCreditScore   = "credit_score"
	FieldSalary        = "salary"
	FieldAge           = "age"
)

// staffMutableFields is the narrow set ProcessingStaff may touch on
// leads assigned to them.
var staffMutableFields = map[string]struct{}{
	FieldStatus:        {},
	FieldProgressStage: {},
}

// CanViewLead reports whether the user may read the lead.
// HigherAuthority sees everything; NodalOfficer is zone-bound;
// ProcessingStaff only sees leads assigned to them.
func CanViewLead(user *domain.User, lead *domain.Lead) bool {
	if user == nil || lead == nil {
		return false
	}
	switch user.Role {
	case domain.RoleHigherAuthority:
		return true
	case domain.RoleNodalOfficer:
		return user.InZone(lead.Zone)
	case domain.RoleProcessingStaff:
		return lead.AssignedToUser(user.ID)
	}
	return false
}

// CanMutateLeadField reports whether the user may change one field of
// the lead. Widening is only upward: HigherAuthority mutates anything,
// NodalOfficer mutates within their zone, ProcessingStaff mutates only
// status and progress stage on their own assigned leads.
func CanMutateLeadField(user *domain.User, lead *domain.Lead, field string) bool {
	if user == nil || lead == nil {
		return false
	}
	switch user.Role {
	case domain.RoleHigherAuthority:
		return true
	case domain.RoleNodalOfficer:
		return user.InZone(lead.Zone)
	case domain.RoleProcessingStaff:
		if _, ok := staffMutableFields[field]; !ok {
			return false
		}
		return lead.AssignedToUser(user.ID)
	}
	return false
}

// MaxProgressStage is the static per-role stage ceiling enforced by the
// progress state machine.
func MaxProgressStage(role domain.Role) int {
	switch role {
	case domain.RoleHigherAuthority:
		return 5
	case domain.RoleNodalOfficer:
		return 4
	case domain.RoleProcessingStaff:
		return 2
	}
	return 0
}

// CanAssignCrossZone reports whether the user may assign a lead to an
// officer outside the lead's zone.
func CanAssignCrossZone(user *domain.User) bool {
	return user != nil && user.Role == domain.RoleHigherAuthority
}
