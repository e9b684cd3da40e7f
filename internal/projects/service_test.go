package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/fees"
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
	byID        map[uuid.UUID]*models.Project
	created     *models.Project
	updatedRows int64
	updates     map[string]any
	incRows     int64
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, p *models.Project) error {
	p.ID = uuid.New()
	f.created = p
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListForClient(_ context.Context, _ uuid.UUID, _ ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeRepo) ListForVibecoder(_ context.Context, _ uuid.UUID, _ ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeRepo) ListOpen(_ context.Context, _ ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeRepo) ListAll(_ context.Context, _ ListFilter) ([]models.Project, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateWhereStatus(_ context.Context, _ uuid.UUID, _ []enums.ProjectStatus, updates map[string]any) (int64, error) {
	f.updates = updates
	return f.updatedRows, nil
}

func (f *fakeRepo) IncrementRevisions(_ context.Context, _ uuid.UUID, _ int) (int64, error) {
	return f.incRows, nil
}

type fakeEscrow struct {
	released  int64
	projectID uuid.UUID
}

func (f *fakeEscrow) ReleaseAllLocked(_ context.Context, _ *gorm.DB, projectID uuid.UUID, _ time.Time) (int64, error) {
	f.projectID = projectID
	return f.released, nil
}

type fakeCreditor struct {
	credits []wallets.CreditInput
}

func (f *fakeCreditor) Credit(_ context.Context, _ *gorm.DB, input wallets.CreditInput) error {
	f.credits = append(f.credits, input)
	return nil
}

func newTestService(t *testing.T, repo *fakeRepo) (Service, *fakeOutbox, *fakeEscrow, *fakeCreditor) {
	t.Helper()
	ob := &fakeOutbox{}
	esc := &fakeEscrow{}
	cred := &fakeCreditor{}
	svc, err := NewService(repo, fakeTxRunner{}, ob, esc, cred, fees.NewCalculator(8), 3)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, ob, esc, cred
}

func clientActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.UserRoleClient}
}

func TestCreateComputesFeesAndMilestoneAmounts(t *testing.T) {
	repo := &fakeRepo{byID: map[uuid.UUID]*models.Project{}}
	svc, ob, _, _ := newTestService(t, repo)
	actor := clientActor()

	dto, err := svc.Create(context.Background(), actor, CreateProjectRequest{
		Title:       "Landing page",
		Description: "Marketing site",
		TotalAmount: 8_000_000,
		Milestones: []MilestoneInput{
			{Title: "Design", Percentage: 40},
			{Title: "Build", Percentage: 60},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.PlatformFee != 640_000 || dto.NetAmount != 7_360_000 {
		t.Fatalf("fees = %d/%d", dto.PlatformFee, dto.NetAmount)
	}
	if dto.Status != enums.ProjectStatusCreated {
		t.Fatalf("status = %s", dto.Status)
	}
	if len(dto.Milestones) != 2 {
		t.Fatalf("milestones = %d", len(dto.Milestones))
	}
	if dto.Milestones[0].Amount != 3_200_000 || dto.Milestones[1].Amount != 4_800_000 {
		t.Fatalf("milestone amounts = %d/%d", dto.Milestones[0].Amount, dto.Milestones[1].Amount)
	}
	if dto.Milestones[0].Order != 1 || dto.Milestones[1].Order != 2 {
		t.Fatalf("milestone order = %d/%d", dto.Milestones[0].Order, dto.Milestones[1].Order)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventProjectCreated {
		t.Fatalf("events = %+v", ob.events)
	}
}

func TestCreateAppliesConfiguredRevisionDefault(t *testing.T) {
	repo := &fakeRepo{byID: map[uuid.UUID]*models.Project{}}
	ob := &fakeOutbox{}
	svc, err := NewService(repo, fakeTxRunner{}, ob, &fakeEscrow{}, &fakeCreditor{}, fees.NewCalculator(8), 5)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	dto, err := svc.Create(context.Background(), clientActor(), CreateProjectRequest{
		Title:       "Dashboard",
		Description: "Analytics dashboard",
		TotalAmount: 2_000_000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.RevisionLimit != 5 {
		t.Fatalf("revision limit = %d", dto.RevisionLimit)
	}

	dto, err = svc.Create(context.Background(), clientActor(), CreateProjectRequest{
		Title:         "Storefront",
		Description:   "Shop frontend",
		TotalAmount:   2_000_000,
		RevisionLimit: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.RevisionLimit != 1 {
		t.Fatalf("revision limit = %d", dto.RevisionLimit)
	}
}

func TestCreateRejectsBadPercentageSum(t *testing.T) {
	repo := &fakeRepo{byID: map[uuid.UUID]*models.Project{}}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.Create(context.Background(), clientActor(), CreateProjectRequest{
		Title:       "x",
		Description: "y",
		TotalAmount: 1_000_000,
		Milestones: []MilestoneInput{
			{Title: "Half", Percentage: 50},
			{Title: "Short", Percentage: 40},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateRejectsNonClient(t *testing.T) {
	repo := &fakeRepo{byID: map[uuid.UUID]*models.Project{}}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.Create(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder}, CreateProjectRequest{
		Title: "x", Description: "y", TotalAmount: 100,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssignVibecoderClaimsOpenProject(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Title: "App", Status: enums.ProjectStatusCreated, ClientID: uuid.New()},
		},
		updatedRows: 1,
	}
	svc, ob, _, _ := newTestService(t, repo)
	actor := Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder}

	dto, err := svc.AssignVibecoder(context.Background(), actor, projectID)
	if err != nil {
		t.Fatalf("AssignVibecoder: %v", err)
	}
	if dto.Status != enums.ProjectStatusEscrowFunded {
		t.Fatalf("status = %s", dto.Status)
	}
	if dto.VibecoderID == nil || *dto.VibecoderID != actor.UserID {
		t.Fatalf("vibecoder = %v", dto.VibecoderID)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventProjectAssigned {
		t.Fatalf("events = %+v", ob.events)
	}
}

func TestAssignVibecoderLosesRace(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Status: enums.ProjectStatusCreated, ClientID: uuid.New()},
		},
		updatedRows: 0,
	}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.AssignVibecoder(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestStartWorkRequiresAssignedVibecoder(t *testing.T) {
	projectID := uuid.New()
	assigned := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Status: enums.ProjectStatusEscrowFunded, ClientID: uuid.New(), VibecoderID: &assigned},
		},
		updatedRows: 1,
	}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.StartWork(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("err = %v", err)
	}

	dto, err := svc.StartWork(context.Background(), Actor{UserID: assigned, Role: enums.UserRoleVibecoder}, projectID)
	if err != nil {
		t.Fatalf("StartWork: %v", err)
	}
	if dto.Status != enums.ProjectStatusInProgress {
		t.Fatalf("status = %s", dto.Status)
	}
}

func TestApproveReleasesEscrowAndCreditsNetAmount(t *testing.T) {
	projectID := uuid.New()
	client := clientActor()
	vibecoder := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {
				ID:          projectID,
				Title:       "API integration",
				Status:      enums.ProjectStatusSubmitted,
				ClientID:    client.UserID,
				VibecoderID: &vibecoder,
				TotalAmount: 5_000_000,
				PlatformFee: 400_000,
				NetAmount:   4_600_000,
			},
		},
		updatedRows: 1,
	}
	svc, ob, esc, cred := newTestService(t, repo)
	esc.released = 3

	dto, err := svc.Approve(context.Background(), client, projectID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if dto.Status != enums.ProjectStatusPaymentReleased {
		t.Fatalf("status = %s", dto.Status)
	}
	if dto.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if esc.projectID != projectID {
		t.Fatalf("escrow release project = %s", esc.projectID)
	}
	if len(cred.credits) != 1 {
		t.Fatalf("credits = %d", len(cred.credits))
	}
	if cred.credits[0].UserID != vibecoder || cred.credits[0].Amount != 4_600_000 {
		t.Fatalf("credit = %+v", cred.credits[0])
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventPaymentReleased {
		t.Fatalf("events = %+v", ob.events)
	}
	payload, ok := ob.events[0].Data.(PaymentReleasedEvent)
	if !ok {
		t.Fatalf("payload type %T", ob.events[0].Data)
	}
	if payload.NetAmount != 4_600_000 || payload.EscrowRows != 3 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestApproveRejectsNonOwner(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Status: enums.ProjectStatusSubmitted, ClientID: uuid.New()},
		},
		updatedRows: 1,
	}
	svc, _, _, cred := newTestService(t, repo)

	_, err := svc.Approve(context.Background(), clientActor(), projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("err = %v", err)
	}
	if len(cred.credits) != 0 {
		t.Fatal("wallet credited on forbidden approve")
	}
}

func TestRequestRevisionEnforcesLimit(t *testing.T) {
	projectID := uuid.New()
	client := clientActor()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {
				ID:            projectID,
				Status:        enums.ProjectStatusSubmitted,
				ClientID:      client.UserID,
				RevisionLimit: 3,
				RevisionsUsed: 3,
			},
		},
	}
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.RequestRevision(context.Background(), client, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeLimitExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequestRevisionIncrementsAndEmits(t *testing.T) {
	projectID := uuid.New()
	client := clientActor()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {
				ID:            projectID,
				Status:        enums.ProjectStatusSubmitted,
				ClientID:      client.UserID,
				RevisionLimit: 3,
				RevisionsUsed: 1,
			},
		},
		incRows: 1,
	}
	svc, ob, _, _ := newTestService(t, repo)

	dto, err := svc.RequestRevision(context.Background(), client, projectID)
	if err != nil {
		t.Fatalf("RequestRevision: %v", err)
	}
	if dto.Status != enums.ProjectStatusRevisionRequested {
		t.Fatalf("status = %s", dto.Status)
	}
	if dto.RevisionsUsed != 2 {
		t.Fatalf("revisions used = %d", dto.RevisionsUsed)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventRevisionRequested {
		t.Fatalf("events = %+v", ob.events)
	}
}

func TestGetVisibilityRules(t *testing.T) {
	projectID := uuid.New()
	client := clientActor()
	repo := &fakeRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Status: enums.ProjectStatusInProgress, ClientID: client.UserID},
		},
	}
	svc, _, _, _ := newTestService(t, repo)

	if _, err := svc.Get(context.Background(), client, projectID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err := svc.Get(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleVibecoder}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("stranger get err = %v", err)
	}
	if _, err := svc.Get(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, projectID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}
