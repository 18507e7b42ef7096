package dto

import (
	"time"

	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/service"
)

// CreateLeadRequest accepts both canonical and legacy field names.
// Legacy ingestion sources use customer_name and region aliases; they
// are reconciled here so the core only ever sees canonical fields.
type CreateLeadRequest struct {
	Name         string  `json:"name"`
	CustomerName string  `json:"customer_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Zone         string  `json:"zone"`
	Region       string  `json:"region"`
	ProductType  string  `json:"product_type"`
	Occupation   string  `json:"occupation"`
	CreditScore  int     `json:"credit_score"`
	Salary       float64 `json:"salary"`
	Age          int     `json:"age"`
	LoanAmount   float64 `json:"loan_amount"`
}

// Canonical resolves legacy aliases into the service input.
func (r CreateLeadRequest) Canonical() service.LeadCreateInput {
	name := r.Name
	if name == "" {
		name = r.CustomerName
	}
	zone := r.Zone
	if zone == "" {
		zone = r.Region
	}
	return service.LeadCreateInput{
		Name:        name,
		Email:       r.Email,
		Phone:       r.Phone,
		Zone:        zone,
		Region:      r.Region,
		ProductType: r.ProductType,
		Occupation:  r.Occupation,
		CreditScore: r.CreditScore,
		Salary:      r.Salary,
		Age:         r.Age,
		LoanAmount:  r.LoanAmount,
	}
}

// UpdateLeadRequest carries optional field updates.
type UpdateLeadRequest struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email"`
	Phone       *string  `json:"phone"`
	ProductType *string  `json:"product_type"`
	Occupation  *string  `json:"occupation"`
	CreditScore *int     `json:"credit_score"`
	Salary      *float64 `json:"salary"`
	Age         *int     `json:"age"`
	LoanAmount  *float64 `json:"loan_amount"`
}

// UpdateStatusRequest changes the coarse workflow status.
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// AssignLeadRequest selects the assignment strategy.
type AssignLeadRequest struct {
	Strategy  string `json:"strategy"`
	OfficerID string `json:"officer_id"`
}

// AdvanceStageRequest moves the five-stage progress forward.
type AdvanceStageRequest struct {
	Stage int    `json:"stage"`
	Notes string `json:"notes"`
}

// LeadSummary is the list representation.
type LeadSummary struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	Name          string  `json:"name"`
	Zone          string  `json:"zone"`
	ProductType   string  `json:"product_type"`
	Status        string  `json:"status"`
	ProgressStage int     `json:"progress_stage"`
	PriorityScore int     `json:"priority_score"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// LeadDetail is the full representation.
type LeadDetail struct {
	LeadSummary
	Email      string                     `json:"email,omitempty"`
	Phone      string                     `json:"phone,omitempty"`
	Region     string                     `json:"region,omitempty"`
	Occupation string                     `json:"occupation,omitempty"`
	CreditScore int                       `json:"credit_score"`
	Salary     float64                    `json:"salary"`
	Age        int                        `json:"age"`
	LoanAmount float64                    `json:"loan_amount"`
	Insight    string                     `json:"insight,omitempty"`
	Progress   map[int]domain.StageDetail `json:"progress"`
	CreatedBy  string                     `json:"created_by"`
}

// AssignmentResponse reports an assignment outcome.
type AssignmentResponse struct {
	LeadID    string `json:"lead_id"`
	OfficerID string `json:"officer_id"`
	Officer   string `json:"officer"`
	Strategy  string `json:"strategy"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewLeadSummary maps a domain lead to its list representation.
func NewLeadSummary(lead *domain.Lead) LeadSummary {
	return LeadSummary{
		ID:            lead.ID,
		Reference:     lead.Reference,
		Name:          lead.Name,
		Zone:          lead.Zone,
		ProductType:   lead.ProductType,
		Status:        string(lead.Status),
		ProgressStage: lead.ProgressStage,
		PriorityScore: lead.PriorityScore,
		AssignedTo:    lead.AssignedTo,
		CreatedAt:     lead.CreatedAt.Format(time.RFC3339),
	}
}

// NewLeadDetail maps a domain lead to its full representation.
func NewLeadDetail(lead *domain.Lead) LeadDetail {
	return LeadDetail{
		LeadSummary: NewLeadSummary(lead),
		Email:       lead.Email,
		Phone:       lead.Phone,
		Region:      lead.Region,
		Occupation:  lead.Occupation,
		CreditScore: lead.CreditScore,
		Salary:      lead.Salary,
		Age:         lead.Age,
		LoanAmount:  lead.LoanAmount,
		Insight:     lead.Insight,
		Progress:    lead.Progress,
		CreatedBy:   lead.CreatedBy,
	}
}

// NewAuditEntries maps audit rows for transport.
func NewAuditEntries(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, AuditEntryResponse{
			ID:        entry.ID,
			Action:    string(entry.Action),
			ActorID:   entry.ActorID,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}
