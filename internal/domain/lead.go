package domain

import "time"

// LeadStatus is the coarse workflow label, independent of the
// five-stage progress detail.
type LeadStatus string

const (
	LeadStatusNew                LeadStatus = "NEW"
	LeadStatusDocumentCollection LeadStatus = "DOCUMENT_COLLECTION"
	LeadStatusInProgress         LeadStatus = "IN_PROGRESS"
	LeadStatusUnderReview        LeadStatus = "UNDER_REVIEW"
	LeadStatusCompleted          LeadStatus = "COMPLETED"
	LeadStatusRejected           LeadStatus = "REJECTED"
)

// Progress stage bounds. Stage 1 is implicit at creation; stage 5
// completes the lead.
const (
	MinProgressStage = 1
	MaxProgressStage = 5
)

var stageNames = map[int]string{
	1: "Initial Review",
	2: "Document Collection",
	3: "Verification",
	4: "Credit Assessment",
	5: "Final Approval",
}

// StageName returns the display name of a progress stage.
func StageName(stage int) string {
	return stageNames[stage]
}

// StageDetail records completion of one progress stage.
type StageDetail struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// Lead is the central aggregate: a loan or credit application moving
// through scoring, assignment and staged review.
type Lead struct {
	ID            string
	Reference     string
	Name          string
	Email         string
	Phone         string
	Zone          string
	Region        string
	ProductType   string
	Occupation    string
	CreditScore   int
	Salary        float64
	Age           int
	LoanAmount    float64
	Status        LeadStatus
	ProgressStage int
	Progress      map[int]StageDetail
	PriorityScore int
	Insight       string
	AssignedTo    *string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Assigned reports whether the lead already has an officer.
func (l *Lead) Assigned() bool {
	return l != nil && l.AssignedTo != nil && *l.AssignedTo != ""
}

// AssignedToUser reports whether the lead is assigned to the given user.
func (l *Lead) AssignedToUser(userID string) bool {
	return l != nil && l.AssignedTo != nil && *l.AssignedTo == userID
}

// Terminal reports whether the lead reached a closed state.
func (l *Lead) Terminal() bool {
	return l != nil && (l.Status == LeadStatusCompleted || l.Status == LeadStatusRejected)
}

// PercentComplete derives completion from recorded stage details.
func (l *Lead) PercentComplete() int {
	if l == nil {
		return 0
	}
	done := 0
	for _, detail := range l.Progress {
		if detail.Completed {
			done++
		}
	}
	return done * 100 / MaxProgressStage
}
