package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/lead-service/internal/domain"
)

func strptr(s string) *string { return &s }

func TestCanViewLead(t *testing.T) {
	north := strptr("north")
	lead := &domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1")}

	tests := []struct {
		name string
		user *domain.User
		want bool
	}{
		{"higher authority sees all", &domain.User{Role: domain.RoleHigherAuthority}, true},
		{"officer same zone", &domain.User{Role: domain.RoleNodalOfficer, Zone: north}, true},
		{"officer other zone", &domain.User{Role: domain.RoleNodalOfficer, Zone: strptr("south")}, false},
		{"assigned staff", &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: north}, true},
		{"unassigned staff same zone", &domain.User{ID: "staff-2", Role: domain.RoleProcessingStaff, Zone: north}, false},
		{"nil user", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewLead(tt.user, lead))
		})
	}
}

func TestCanMutateLeadField(t *testing.T) {
	lead := &domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1")}
	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("north")}
	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}

	assert.True(t, CanMutateLeadField(staff, lead, FieldStatus))
	assert.True(t, CanMutateLeadField(staff, lead, FieldProgressStage))
	assert.False(t, CanMutateLeadField(staff, lead, FieldLoanAmount))
	assert.False(t, CanMutateLeadField(staff, lead, FieldCreditScore))

	otherStaff := &domain.User{ID: "staff-9", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	assert.False(t, CanMutateLeadField(otherStaff, lead, FieldStatus))

	assert.True(t, CanMutateLeadField(officer, lead, FieldLoanAmount))
	outOfZone := &domain.User{ID: "officer-2", Role: domain.RoleNodalOfficer, Zone: strptr("south")}
	assert.False(t, CanMutateLeadField(outOfZone, lead, FieldStatus))

	assert.True(t, CanMutateLeadField(authority, lead, FieldSalary))
}

func TestMaxProgressStage(t *testing.T) {
	assert.Equal(t, 5, MaxProgressStage(domain.RoleHigherAuthority))
	assert.Equal(t, 4, MaxProgressStage(domain.RoleNodalOfficer))
	assert.Equal(t, 2, MaxProgressStage(domain.RoleProcessingStaff))
	assert.Equal(t, 0, MaxProgressStage(domain.Role("INTERN")))
}

func TestCanAssignCrossZone(t *testing.T) {
	assert.True(t, CanAssignCrossZone(&domain.User{Role: domain.RoleHigherAuthority}))
	assert.False(t, CanAssignCrossZone(&domain.User{Role: domain.RoleNodalOfficer}))
	assert.False(t, CanAssignCrossZone(nil))
}
