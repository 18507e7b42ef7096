package domain

// statusRank orders coarse statuses along the normal workflow.
// Rejected sits outside the ordering: it is a terminal override
// reachable from any state by any authorized mutator.
var statusRank = map[LeadStatus]int{
	LeadStatusNew:                0,
	LeadStatusDocumentCollection: 1,
	LeadStatusInProgress:         2,
	LeadStatusUnderReview:        3,
	LeadStatusCompleted:          4,
}

// roleStatusCeiling caps how far each role may push the coarse status.
var roleStatusCeiling = map[Role]LeadStatus{
	RoleProcessingStaff: LeadStatusInProgress,
	RoleNodalOfficer:    LeadStatusUnderReview,
	RoleHigherAuthority: LeadStatusCompleted,
}

// IsKnownStatus reports whether the status is part of the workflow.
func IsKnownStatus(status LeadStatus) bool {
	if status == LeadStatusRejected {
		return true
	}
	_, ok := statusRank[status]
	return ok
}

// StatusCeiling returns the highest ordered status a role may set.
func StatusCeiling(role Role) LeadStatus {
	return roleStatusCeiling[role]
}

// CanSetStatus is the static role/status permission table. Rejection is
// always permitted; otherwise the target must be a known status at or
// below the role's ceiling. Ordering between current and target is not
// enforced here: the five-stage progress path owns forward progression,
// this table only scopes what labels a role may apply.
func CanSetStatus(role Role, target LeadStatus) bool {
	if target == LeadStatusRejected {
		return true
	}
	targetRank, ok := statusRank[target]
	if !ok {
		return false
	}
	ceiling, ok := statusRank[roleStatusCeiling[role]]
	if !ok {
		return false
	}
	return targetRank <= ceiling
}
