package events

import (
	"time"

	"github.com/spec-kit/lead-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadCreated       EventType = "lead_created"
	EventLeadScored        EventType = "lead_scored"
	EventLeadAssigned      EventType = "lead_assigned"
	EventLeadStageAdvanced EventType = "lead_stage_advanced"
	EventLeadStatusChanged EventType = "lead_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	LeadID    string      `json:"lead_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LeadCreatedPayload payload.
type LeadCreatedPayload struct {
	Zone          string            `json:"zone"`
	ProductType   string            `json:"product_type"`
	PriorityScore int               `json:"priority_score"`
	Status        domain.LeadStatus `json:"status"`
}

// LeadScoredPayload payload.
type LeadScoredPayload struct {
	PriorityScore int    `json:"priority_score"`
	Insight       string `json:"insight"`
}

// LeadAssignedPayload payload.
type LeadAssignedPayload struct {
	OfficerID string `json:"officer_id"`
	Strategy  string `json:"strategy"`
	Zone      string `json:"zone"`
}

// LeadStageAdvancedPayload payload.
type LeadStageAdvancedPayload struct {
	PreviousStage int    `json:"previous_stage"`
	NewStage      int    `json:"new_stage"`
	StageName     string `json:"stage_name"`
	Notes         string `json:"notes,omitempty"`
}

// LeadStatusChangedPayload payload.
type LeadStatusChangedPayload struct {
	OldStatus domain.LeadStatus `json:"old_status"`
	NewStatus domain.LeadStatus `json:"new_status"`
	Comment   string            `json:"comment,omitempty"`
}
