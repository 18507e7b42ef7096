package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		target LeadStatus
		want   bool
	}{
		{"staff within ceiling", RoleProcessingStaff, LeadStatusInProgress, true},
		{"staff below ceiling", RoleProcessingStaff, LeadStatusDocumentCollection, true},
		{"staff above ceiling", RoleProcessingStaff, LeadStatusUnderReview, false},
		{"staff cannot complete", RoleProcessingStaff, LeadStatusCompleted, false},
		{"officer at ceiling", RoleNodalOfficer, LeadStatusUnderReview, true},
		{"officer cannot complete", RoleNodalOfficer, LeadStatusCompleted, false},
		{"authority completes", RoleHigherAuthority, LeadStatusCompleted, true},
		{"unknown status", RoleHigherAuthority, LeadStatus("ARCHIVED"), false},
		{"unknown role", Role("INTERN"), LeadStatusNew, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSetStatus(tt.role, tt.target))
		})
	}
}

func TestCanSetStatusRejectedAlwaysAllowed(t *testing.T) {
	for _, role := range []Role{RoleProcessingStaff, RoleNodalOfficer, RoleHigherAuthority} {
		assert.True(t, CanSetStatus(role, LeadStatusRejected), "role %s", role)
	}
}

func TestIsKnownStatus(t *testing.T) {
	for _, status := range []LeadStatus{
		LeadStatusNew, LeadStatusDocumentCollection, LeadStatusInProgress,
		LeadStatusUnderReview, LeadStatusCompleted, LeadStatusRejected,
	} {
		assert.True(t, IsKnownStatus(status), "status %s", status)
	}
	assert.False(t, IsKnownStatus(LeadStatus("ARCHIVED")))
	assert.False(t, IsKnownStatus(LeadStatus("")))
}

func TestStatusCeiling(t *testing.T) {
	assert.Equal(t, LeadStatusInProgress, StatusCeiling(RoleProcessingStaff))
	assert.Equal(t, LeadStatusUnderReview, StatusCeiling(RoleNodalOfficer))
	assert.Equal(t, LeadStatusCompleted, StatusCeiling(RoleHigherAuthority))
}

func TestRoleOutranks(t *testing.T) {
	assert.True(t, RoleHigherAuthority.Outranks(RoleNodalOfficer))
	assert.True(t, RoleHigherAuthority.Outranks(RoleProcessingStaff))
	assert.True(t, RoleNodalOfficer.Outranks(RoleProcessingStaff))
	assert.False(t, RoleNodalOfficer.Outranks(RoleNodalOfficer))
	assert.False(t, RoleProcessingStaff.Outranks(RoleHigherAuthority))
}

func TestLeadPercentComplete(t *testing.T) {
	lead := &Lead{Progress: map[int]StageDetail{
		1: {Completed: true},
		2: {Completed: true},
	}}
	assert.Equal(t, 40, lead.PercentComplete())

	empty := &Lead{}
	assert.Equal(t, 0, empty.PercentComplete())
}
