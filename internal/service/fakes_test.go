package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/events"
	"github.com/spec-kit/lead-service/internal/repository"
)

func strptr(s string) *string { return &s }

// fakeLeadRepo is an in-memory LeadRepository preserving the conditional
// write semantics of the SQL implementation.
type fakeLeadRepo struct {
	mu    sync.Mutex
	seq   int
	leads map[string]*domain.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: map[string]*domain.Lead{}}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	lead.ID = fmt.Sprintf("lead-%d", r.seq)
	clone := *lead
	r.leads[lead.ID] = &clone
	return nil
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *lead
	return &clone, nil
}

func (r *fakeLeadRepo) GetByReference(_ context.Context, reference string) (*domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.leads {
		if lead.Reference == reference {
			clone := *lead
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeLeadRepo) ListWithFilter(_ context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if filter.Zone != nil && lead.Zone != *filter.Zone {
			continue
		}
		if filter.AssignedTo != nil && !lead.AssignedToUser(*filter.AssignedTo) {
			continue
		}
		out = append(out, *lead)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLeadRepo) UpdateFields(_ context.Context, lead *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leads[lead.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = lead.Name
	stored.Email = lead.Email
	stored.Phone = lead.Phone
	stored.ProductType = lead.ProductType
	stored.Occupation = lead.Occupation
	stored.CreditScore = lead.CreditScore
	stored.Salary = lead.Salary
	stored.Age = lead.Age
	stored.LoanAmount = lead.LoanAmount
	stored.PriorityScore = lead.PriorityScore
	stored.Insight = lead.Insight
	return nil
}

func (r *fakeLeadRepo) UpdateStatus(_ context.Context, id string, status domain.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leads[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = status
	return nil
}

func (r *fakeLeadRepo) AssignOfficer(_ context.Context, leadID, officerID, zone, region string, status domain.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leads[leadID]
	if !ok || stored.Assigned() {
		return repository.ErrLeadAlreadyAssigned
	}
	stored.AssignedTo = &officerID
	stored.Zone = zone
	stored.Region = region
	stored.Status = status
	return nil
}

func (r *fakeLeadRepo) AdvanceStage(_ context.Context, leadID string, fromStage, toStage int, status domain.LeadStatus, progress map[int]domain.StageDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leads[leadID]
	if !ok || stored.ProgressStage != fromStage {
		return repository.ErrStageConflict
	}
	stored.ProgressStage = toStage
	stored.Status = status
	stored.Progress = progress
	return nil
}

func (r *fakeLeadRepo) CountActiveByOfficer(_ context.Context, officerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, lead := range r.leads {
		if lead.AssignedToUser(officerID) && !lead.Terminal() {
			count++
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) CountHighPriorityActiveByOfficer(_ context.Context, officerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, lead := range r.leads {
		if lead.AssignedToUser(officerID) && !lead.Terminal() && lead.PriorityScore >= 80 {
			count++
		}
	}
	return count, nil
}

func (r *fakeLeadRepo) put(lead *domain.Lead) *domain.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lead.ID == "" {
		r.seq++
		lead.ID = fmt.Sprintf("lead-%d", r.seq)
	}
	clone := *lead
	r.leads[lead.ID] = &clone
	return lead
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Zone != nil && (user.Zone == nil || *user.Zone != *filter.Zone) {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) FindActiveByRoleAndZone(_ context.Context, role domain.Role, zone string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0)
	for _, user := range r.users {
		if user.Role == role && user.Active && user.InZone(zone) {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) put(user *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	clone := *user
	r.users[user.ID] = &clone
	return user
}

// fakeAuditRepo records audit entries in memory.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByLead(_ context.Context, leadID string) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.LeadID == leadID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) byAction(action domain.AuditAction) []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

// captureDispatcher records published events.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, 0)
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
