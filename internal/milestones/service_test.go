package milestones

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRepo struct {
	byID         map[uuid.UUID]*models.Milestone
	remaining    int64
	deliverables []*models.Deliverable
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Milestone, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) ListByProject(_ context.Context, _ uuid.UUID) ([]models.Milestone, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateStatusWhere(_ context.Context, id uuid.UUID, allowed []enums.MilestoneStatus, updates map[string]any) (int64, error) {
	m, ok := f.byID[id]
	if !ok {
		return 0, nil
	}
	for _, status := range allowed {
		if m.Status == status {
			if next, ok := updates["status"].(enums.MilestoneStatus); ok {
				m.Status = next
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeRepo) CountInStatuses(_ context.Context, _ uuid.UUID, _ []enums.MilestoneStatus) (int64, error) {
	return f.remaining, nil
}

func (f *fakeRepo) StartAllPending(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) CreateDeliverable(_ context.Context, d *models.Deliverable) error {
	f.deliverables = append(f.deliverables, d)
	return nil
}

func (f *fakeRepo) ListDeliverables(_ context.Context, _ uuid.UUID) ([]models.Deliverable, error) {
	return nil, nil
}

type fakeProjectRepo struct {
	byID    map[uuid.UUID]*models.Project
	updates []map[string]any
}

func (f *fakeProjectRepo) WithTx(*gorm.DB) projects.Repository { return f }

func (f *fakeProjectRepo) Create(_ context.Context, _ *models.Project) error { return nil }

func (f *fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepo) ListForClient(_ context.Context, _ uuid.UUID, _ projects.ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeProjectRepo) ListForVibecoder(_ context.Context, _ uuid.UUID, _ projects.ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeProjectRepo) ListOpen(_ context.Context, _ projects.ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeProjectRepo) ListAll(_ context.Context, _ projects.ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeProjectRepo) UpdateWhereStatus(_ context.Context, _ uuid.UUID, _ []enums.ProjectStatus, updates map[string]any) (int64, error) {
	f.updates = append(f.updates, updates)
	return 1, nil
}

func (f *fakeProjectRepo) IncrementRevisions(_ context.Context, _ uuid.UUID, _ int) (int64, error) {
	return 0, nil
}

type fakeSettler struct {
	row      *models.EscrowTransaction
	released int64
}

func (f *fakeSettler) ReleaseByMilestone(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ time.Time) (int64, error) {
	return f.released, nil
}

func (f *fakeSettler) FindByMilestone(_ context.Context, _ *gorm.DB, _ uuid.UUID) (*models.EscrowTransaction, error) {
	if f.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.row, nil
}

type fakeCreditor struct {
	credits []wallets.CreditInput
}

func (f *fakeCreditor) Credit(_ context.Context, _ *gorm.DB, input wallets.CreditInput) error {
	f.credits = append(f.credits, input)
	return nil
}

type fixture struct {
	svc      Service
	repo     *fakeRepo
	projects *fakeProjectRepo
	settler  *fakeSettler
	creditor *fakeCreditor
	outbox   *fakeOutbox
}

func newFixture(t *testing.T, repo *fakeRepo, prepo *fakeProjectRepo) *fixture {
	t.Helper()
	settler := &fakeSettler{}
	creditor := &fakeCreditor{}
	ob := &fakeOutbox{}
	svc, err := NewService(repo, prepo, settler, creditor, fakeTxRunner{}, ob)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, repo: repo, projects: prepo, settler: settler, creditor: creditor, outbox: ob}
}

func TestSubmitCreatesDeliverableAndMarksProject(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Title: "Build", Status: enums.MilestoneStatusInProgress},
		},
		remaining:   0,
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Status: enums.ProjectStatusInProgress, ClientID: uuid.New(), VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)

	dto, err := fx.svc.Submit(context.Background(),
		projects.Actor{UserID: vibecoder, Role: enums.UserRoleVibecoder},
		milestoneID,
		SubmitRequest{RepoLink: "https://github.com/acme/landing"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if dto.Status != enums.MilestoneStatusSubmitted {
		t.Fatalf("status = %s", dto.Status)
	}
	if dto.SubmittedAt == nil {
		t.Fatal("submitted_at not set")
	}
	if len(repo.deliverables) != 1 || repo.deliverables[0].RepoLink != "https://github.com/acme/landing" {
		t.Fatalf("deliverables = %+v", repo.deliverables)
	}
	if len(prepo.updates) != 1 || prepo.updates[0]["status"] != enums.ProjectStatusSubmitted {
		t.Fatalf("project updates = %+v", prepo.updates)
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventMilestoneSubmitted {
		t.Fatalf("events = %+v", fx.outbox.events)
	}
}

func TestSubmitRejectsUnassignedVibecoder(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	assigned := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Status: enums.MilestoneStatusInProgress},
		},
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, ClientID: uuid.New(), VibecoderID: &assigned},
	}}
	fx := newFixture(t, repo, prepo)

	_, err := fx.svc.Submit(context.Background(),
		projects.Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder},
		milestoneID,
		SubmitRequest{RepoLink: "https://github.com/acme/landing"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitKeepsProjectOpenWhileMilestonesRemain(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Status: enums.MilestoneStatusInProgress},
		},
		remaining:   2,
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, ClientID: uuid.New(), VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)

	_, err := fx.svc.Submit(context.Background(),
		projects.Actor{UserID: vibecoder, Role: enums.UserRoleVibecoder},
		milestoneID,
		SubmitRequest{RepoLink: "https://github.com/acme/landing"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(prepo.updates) != 0 {
		t.Fatalf("project should stay untouched, updates = %+v", prepo.updates)
	}
}

func TestResubmitAfterRevisionReachesApproval(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	client := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Title: "Revise", Status: enums.MilestoneStatusSubmitted},
		},
		remaining: 0,
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Status: enums.ProjectStatusInProgress, ClientID: client, VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)

	dto, err := fx.svc.Submit(context.Background(),
		projects.Actor{UserID: vibecoder, Role: enums.UserRoleVibecoder},
		milestoneID,
		SubmitRequest{RepoLink: "https://github.com/acme/landing-v2"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if dto.Status != enums.MilestoneStatusSubmitted || dto.SubmittedAt == nil {
		t.Fatalf("dto = %+v", dto)
	}
	if len(repo.deliverables) != 1 || repo.deliverables[0].RepoLink != "https://github.com/acme/landing-v2" {
		t.Fatalf("deliverables = %+v", repo.deliverables)
	}
	if len(prepo.updates) != 1 || prepo.updates[0]["status"] != enums.ProjectStatusSubmitted {
		t.Fatalf("project updates = %+v", prepo.updates)
	}

	fx.settler.row = &models.EscrowTransaction{ID: uuid.New(), ProjectID: projectID, NetAmount: 1_472_000}
	fx.settler.released = 1
	approved, err := fx.svc.Approve(context.Background(),
		projects.Actor{UserID: client, Role: enums.UserRoleClient}, milestoneID)
	if err != nil {
		t.Fatalf("approve after resubmit: %v", err)
	}
	if approved.Status != enums.MilestoneStatusApproved {
		t.Fatalf("status = %s", approved.Status)
	}
	if len(prepo.updates) != 2 || prepo.updates[1]["status"] != enums.ProjectStatusCompleted {
		t.Fatalf("project updates = %+v", prepo.updates)
	}
	if len(fx.creditor.credits) != 1 || fx.creditor.credits[0].Amount != 1_472_000 {
		t.Fatalf("credits = %+v", fx.creditor.credits)
	}
}

func TestSubmitRejectsSettledMilestone(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Status: enums.MilestoneStatusApproved},
		},
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, ClientID: uuid.New(), VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)

	_, err := fx.svc.Submit(context.Background(),
		projects.Actor{UserID: vibecoder, Role: enums.UserRoleVibecoder},
		milestoneID,
		SubmitRequest{RepoLink: "https://github.com/acme/landing"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestApproveReleasesEscrowAndCreditsNet(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	client := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Title: "Design", Status: enums.MilestoneStatusSubmitted},
		},
		remaining:   1,
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Status: enums.ProjectStatusInProgress, ClientID: client, VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)
	escrowID := uuid.New()
	fx.settler.row = &models.EscrowTransaction{ID: escrowID, ProjectID: projectID, NetAmount: 2_944_000}
	fx.settler.released = 1

	dto, err := fx.svc.Approve(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, milestoneID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if dto.Status != enums.MilestoneStatusApproved || dto.ApprovedAt == nil {
		t.Fatalf("dto = %+v", dto)
	}
	if len(fx.creditor.credits) != 1 {
		t.Fatalf("credits = %d", len(fx.creditor.credits))
	}
	credit := fx.creditor.credits[0]
	if credit.UserID != vibecoder || credit.Amount != 2_944_000 {
		t.Fatalf("credit = %+v", credit)
	}
	if credit.EscrowTransactionID == nil || *credit.EscrowTransactionID != escrowID {
		t.Fatalf("credit escrow = %v", credit.EscrowTransactionID)
	}
	if len(prepo.updates) != 0 {
		t.Fatal("project should not complete with milestones remaining")
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventMilestoneApproved {
		t.Fatalf("events = %+v", fx.outbox.events)
	}
}

func TestApproveLastMilestoneCompletesProject(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	client := uuid.New()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Title: "Launch", Status: enums.MilestoneStatusSubmitted},
		},
		remaining:   0,
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Status: enums.ProjectStatusSubmitted, ClientID: client, VibecoderID: &vibecoder},
	}}
	fx := newFixture(t, repo, prepo)
	fx.settler.row = &models.EscrowTransaction{ID: uuid.New(), ProjectID: projectID, NetAmount: 4_416_000}
	fx.settler.released = 1

	_, err := fx.svc.Approve(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, milestoneID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(prepo.updates) != 1 || prepo.updates[0]["status"] != enums.ProjectStatusCompleted {
		t.Fatalf("project updates = %+v", prepo.updates)
	}
	if len(fx.outbox.events) != 2 {
		t.Fatalf("events = %d", len(fx.outbox.events))
	}
	if fx.outbox.events[1].EventType != enums.EventProjectCompleted {
		t.Fatalf("second event = %s", fx.outbox.events[1].EventType)
	}
}

func TestApproveRejectsSettledEscrow(t *testing.T) {
	projectID := uuid.New()
	milestoneID := uuid.New()
	client := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Milestone{
			milestoneID: {ID: milestoneID, ProjectID: projectID, Status: enums.MilestoneStatusSubmitted},
		},
	}
	prepo := &fakeProjectRepo{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, ClientID: client},
	}}
	fx := newFixture(t, repo, prepo)
	fx.settler.row = &models.EscrowTransaction{ID: uuid.New(), ProjectID: projectID, NetAmount: 100}
	fx.settler.released = 0

	_, err := fx.svc.Approve(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, milestoneID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("err = %v", err)
	}
}
