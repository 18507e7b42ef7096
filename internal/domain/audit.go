package domain

import "time"

// AuditAction names the operation recorded in an audit entry.
type AuditAction string

const (
	AuditActionCreated       AuditAction = "LEAD_CREATED"
	AuditActionScored        AuditAction = "LEAD_SCORED"
	AuditActionAssigned      AuditAction = "LEAD_ASSIGNED"
	AuditActionStageAdvanced AuditAction = "STAGE_ADVANCED"
	AuditActionStatusChanged AuditAction = "STATUS_CHANGED"
	AuditActionFieldsUpdated AuditAction = "FIELDS_UPDATED"
)

// AuditEntry is an immutable append-only trail record. Every mutating
// operation on a lead appends exactly one entry.
type AuditEntry struct {
	ID        string
	LeadID    string
	Action    AuditAction
	ActorID   string
	Details   map[string]any
	CreatedAt time.Time
}
