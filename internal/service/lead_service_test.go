package service

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-service/internal/domain"
	"github.com/spec-kit/lead-service/internal/events"
	"github.com/spec-kit/lead-service/internal/scoring"
	apperrors "github.com/spec-kit/lead-service/pkg/util"
)

type leadFixture struct {
	leads      *fakeLeadRepo
	audit      *fakeAuditRepo
	dispatcher *captureDispatcher
	service    *LeadService
}

func newLeadFixture() *leadFixture {
	leads := newFakeLeadRepo()
	audit := newFakeAuditRepo()
	dispatcher := &captureDispatcher{}
	scorer := scoring.NewScorer(nil, rand.New(rand.NewSource(7)), zap.NewNop())
	return &leadFixture{
		leads:      leads,
		audit:      audit,
		dispatcher: dispatcher,
		service: NewLeadService(LeadDependencies{
			LeadRepo:   leads,
			AuditRepo:  audit,
			Scorer:     scorer,
			Dispatcher: dispatcher,
		}),
	}
}

func TestCreateLeadScoresAndAudits(t *testing.T) {
	f := newLeadFixture()
	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}

	lead, err := f.service.CreateLead(context.Background(), authority, LeadCreateInput{
		Name:        "Asha Verma",
		Zone:        "north",
		ProductType: "loan",
		CreditScore: 720,
		Salary:      80000,
		Age:         31,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(lead.Reference, "LD-"))
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, 1, lead.ProgressStage)
	assert.GreaterOrEqual(t, lead.PriorityScore, 60)
	assert.LessOrEqual(t, lead.PriorityScore, 99)
	assert.NotEmpty(t, lead.Insight)
	assert.Equal(t, "north", lead.Region, "region defaults to zone")

	entries := f.audit.byAction(domain.AuditActionCreated)
	require.Len(t, entries, 1)

	assert.Len(t, f.dispatcher.byType(events.EventLeadCreated), 1)
	assert.Len(t, f.dispatcher.byType(events.EventLeadScored), 1)
}

func TestCreateLeadPinsCreatorZone(t *testing.T) {
	f := newLeadFixture()
	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("east")}

	lead, err := f.service.CreateLead(context.Background(), officer, LeadCreateInput{
		Name: "Ravi Kumar",
		Zone: "west",
	})
	require.NoError(t, err)
	assert.Equal(t, "east", lead.Zone, "non Higher Authority creators cannot place leads outside their zone")
}

func TestCreateLeadValidatesRequiredFields(t *testing.T) {
	f := newLeadFixture()
	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}

	_, err := f.service.CreateLead(context.Background(), authority, LeadCreateInput{Zone: "north"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.service.CreateLead(context.Background(), authority, LeadCreateInput{Name: "No Zone"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestGetLeadEnforcesVisibility(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1")})

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	lead, err := f.service.GetLead(context.Background(), staff, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)

	stranger := &domain.User{ID: "staff-2", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	_, err = f.service.GetLead(context.Background(), stranger, "lead-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccessDenied))

	outOfZone := &domain.User{ID: "officer-2", Role: domain.RoleNodalOfficer, Zone: strptr("south")}
	_, err = f.service.GetLead(context.Background(), outOfZone, "lead-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccessDenied))
}

func TestListLeadsScopedByRole(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1")})
	f.leads.put(&domain.Lead{ID: "lead-2", Zone: "north"})
	f.leads.put(&domain.Lead{ID: "lead-3", Zone: "south"})

	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}
	all, err := f.service.ListLeads(context.Background(), authority, LeadListInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("north")}
	northOnly, err := f.service.ListLeads(context.Background(), officer, LeadListInput{})
	require.NoError(t, err)
	assert.Len(t, northOnly, 2)

	// An officer's explicit zone filter cannot widen their scope.
	south := "south"
	pinned, err := f.service.ListLeads(context.Background(), officer, LeadListInput{Zone: &south})
	require.NoError(t, err)
	assert.Len(t, pinned, 2)

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	mine, err := f.service.ListLeads(context.Background(), staff, LeadListInput{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "lead-1", mine[0].ID)
}

func TestUpdateFieldsGatesPerField(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1"), Region: "north"})

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	amount := 50000.0
	_, err := f.service.UpdateFields(context.Background(), staff, "lead-1", LeadUpdateInput{LoanAmount: &amount})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccessDenied))
}

func TestUpdateFieldsRescoresOnScoringInputs(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", Region: "north", PriorityScore: 70})
	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("north")}

	credit := 810
	lead, err := f.service.UpdateFields(context.Background(), officer, "lead-1", LeadUpdateInput{CreditScore: &credit})
	require.NoError(t, err)
	assert.Equal(t, 810, lead.CreditScore)
	assert.GreaterOrEqual(t, lead.PriorityScore, 60)

	entries := f.audit.byAction(domain.AuditActionFieldsUpdated)
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].Details["rescored"])
	assert.Len(t, f.dispatcher.byType(events.EventLeadScored), 1)
}

func TestUpdateFieldsWithoutChangesFails(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north"})
	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}

	_, err := f.service.UpdateFields(context.Background(), authority, "lead-1", LeadUpdateInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUpdateStatusHonorsRoleCeilings(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1"), Status: domain.LeadStatusInProgress})

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	_, err := f.service.UpdateStatus(context.Background(), staff, "lead-1", domain.LeadStatusUnderReview, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermissions))

	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("north")}
	lead, err := f.service.UpdateStatus(context.Background(), officer, "lead-1", domain.LeadStatusUnderReview, "ready for review")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusUnderReview, lead.Status)

	_, err = f.service.UpdateStatus(context.Background(), officer, "lead-1", domain.LeadStatusCompleted, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientPermissions))
}

func TestUpdateStatusRejectionAlwaysAvailable(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north", AssignedTo: strptr("staff-1"), Status: domain.LeadStatusInProgress})

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	lead, err := f.service.UpdateStatus(context.Background(), staff, "lead-1", domain.LeadStatusRejected, "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusRejected, lead.Status)

	entries := f.audit.byAction(domain.AuditActionStatusChanged)
	require.Len(t, entries, 1)
	assert.Equal(t, "incomplete documents", entries[0].Details["comment"])
	assert.Len(t, f.dispatcher.byType(events.EventLeadStatusChanged), 1)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newLeadFixture()
	authority := &domain.User{ID: "ha-1", Role: domain.RoleHigherAuthority}

	_, err := f.service.UpdateStatus(context.Background(), authority, "lead-1", domain.LeadStatus("ARCHIVED"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestListAuditGatedByVisibility(t *testing.T) {
	f := newLeadFixture()
	f.leads.put(&domain.Lead{ID: "lead-1", Zone: "north"})
	f.audit.Create(context.Background(), &domain.AuditEntry{LeadID: "lead-1", Action: domain.AuditActionCreated, ActorID: "ha-1"})

	officer := &domain.User{ID: "officer-1", Role: domain.RoleNodalOfficer, Zone: strptr("north")}
	entries, err := f.service.ListAudit(context.Background(), officer, "lead-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	staff := &domain.User{ID: "staff-1", Role: domain.RoleProcessingStaff, Zone: strptr("north")}
	_, err = f.service.ListAudit(context.Background(), staff, "lead-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccessDenied))
}
