package domain

import "time"

// Role enumerates the three-tier authority hierarchy.
type Role string

const (
	RoleHigherAuthority Role = "HIGHER_AUTHORITY"
	RoleNodalOfficer    Role = "NODAL_OFFICER"
	RoleProcessingStaff Role = "PROCESSING_STAFF"
)

// roleRank orders roles by privilege, higher wins.
var roleRank = map[Role]int{
	RoleProcessingStaff: 1,
	RoleNodalOfficer:    2,
	RoleHigherAuthority: 3,
}

// Rank returns the privilege rank of the role; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// Outranks reports whether r is strictly higher in the hierarchy than other.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// IsValid reports whether the role is one of the known tiers.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// User models an operator in the hierarchy. Zone is nil only for
// HigherAuthority; NodalOfficer and ProcessingStaff belong to exactly
// one zone fixed at creation. CreatedBy is nil only for the root admin.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Zone         *string
	CreatedBy    *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InZone reports whether the user belongs to the given zone.
// HigherAuthority has no zone and never matches here.
func (u *User) InZone(zone string) bool {
	return u != nil && u.Zone != nil && *u.Zone == zone
}
