package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/projects"
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

type fakeEscrowRepo struct {
	created []models.EscrowTransaction
	rows    []models.EscrowTransaction
}

func (f *fakeEscrowRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeEscrowRepo) CreateBatch(_ context.Context, rows []models.EscrowTransaction) error {
	f.created = append(f.created, rows...)
	return nil
}

func (f *fakeEscrowRepo) ListByProject(_ context.Context, _ uuid.UUID) ([]models.EscrowTransaction, error) {
	return f.rows, nil
}

func (f *fakeEscrowRepo) ListLockedByProject(_ context.Context, _ uuid.UUID) ([]models.EscrowTransaction, error) {
	return f.rows, nil
}

func (f *fakeEscrowRepo) FindByMilestone(_ context.Context, _ uuid.UUID) (*models.EscrowTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEscrowRepo) ReleaseAllLocked(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeEscrowRepo) RefundAllLocked(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeEscrowRepo) ReleaseByMilestone(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeProjectRepo struct {
	byID        map[uuid.UUID]*models.Project
	updatedRows int64
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

func (f *fakeProjectRepo) UpdateWhereStatus(_ context.Context, _ uuid.UUID, _ []enums.ProjectStatus, _ map[string]any) (int64, error) {
	return f.updatedRows, nil
}

func (f *fakeProjectRepo) IncrementRevisions(_ context.Context, _ uuid.UUID, _ int) (int64, error) {
	return 0, nil
}

type fakeStarter struct {
	started []uuid.UUID
}

func (f *fakeStarter) StartAllPending(_ context.Context, _ *gorm.DB, projectID uuid.UUID) (int64, error) {
	f.started = append(f.started, projectID)
	return 1, nil
}

func TestFundCreatesPerMilestoneRows(t *testing.T) {
	client := uuid.New()
	projectID := uuid.New()
	m1 := models.Milestone{ID: uuid.New(), ProjectID: projectID, Title: "Design", Percentage: 40, Amount: 3_200_000}
	m2 := models.Milestone{ID: uuid.New(), ProjectID: projectID, Title: "Build", Percentage: 60, Amount: 4_800_000}
	prepo := &fakeProjectRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {
				ID:          projectID,
				Status:      enums.ProjectStatusCreated,
				ClientID:    client,
				TotalAmount: 8_000_000,
				PlatformFee: 640_000,
				NetAmount:   7_360_000,
				Milestones:  []models.Milestone{m1, m2},
			},
		},
		updatedRows: 1,
	}
	erepo := &fakeEscrowRepo{}
	starter := &fakeStarter{}
	ob := &fakeOutbox{}
	svc, err := NewService(erepo, prepo, starter, fakeTxRunner{}, ob, fees.NewCalculator(8))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rows, err := svc.Fund(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, projectID)
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].MilestoneID == nil || *rows[0].MilestoneID != m1.ID {
		t.Fatalf("row 0 milestone = %v", rows[0].MilestoneID)
	}
	if rows[0].Amount != 3_200_000 || rows[0].PlatformFee != 256_000 || rows[0].NetAmount != 2_944_000 {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Amount != 4_800_000 || rows[1].PlatformFee != 384_000 || rows[1].NetAmount != 4_416_000 {
		t.Fatalf("row 1 = %+v", rows[1])
	}
	if rows[0].Status != enums.EscrowStatusLocked {
		t.Fatalf("status = %s", rows[0].Status)
	}
	if len(starter.started) != 1 || starter.started[0] != projectID {
		t.Fatalf("milestones not started: %v", starter.started)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventEscrowFunded {
		t.Fatalf("events = %+v", ob.events)
	}
}

func TestFundWithoutMilestonesCreatesSingleRow(t *testing.T) {
	client := uuid.New()
	projectID := uuid.New()
	prepo := &fakeProjectRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {
				ID:          projectID,
				Status:      enums.ProjectStatusCreated,
				ClientID:    client,
				TotalAmount: 1_000_000,
				PlatformFee: 80_000,
				NetAmount:   920_000,
			},
		},
		updatedRows: 1,
	}
	starter := &fakeStarter{}
	svc, err := NewService(&fakeEscrowRepo{}, prepo, starter, fakeTxRunner{}, &fakeOutbox{}, fees.NewCalculator(8))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	rows, err := svc.Fund(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, projectID)
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].MilestoneID != nil {
		t.Fatal("project-level row should have no milestone")
	}
	if rows[0].Amount != 1_000_000 || rows[0].NetAmount != 920_000 {
		t.Fatalf("row = %+v", rows[0])
	}
	if len(starter.started) != 0 {
		t.Fatal("no milestones to start")
	}
}

func TestFundGuards(t *testing.T) {
	client := uuid.New()
	projectID := uuid.New()
	prepo := &fakeProjectRepo{
		byID: map[uuid.UUID]*models.Project{
			projectID: {ID: projectID, Status: enums.ProjectStatusInProgress, ClientID: client},
		},
		updatedRows: 1,
	}
	svc, err := NewService(&fakeEscrowRepo{}, prepo, &fakeStarter{}, fakeTxRunner{}, &fakeOutbox{}, fees.NewCalculator(8))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Fund(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleVibecoder}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("role guard err = %v", err)
	}

	_, err = svc.Fund(context.Background(), projects.Actor{UserID: uuid.New(), Role: enums.UserRoleClient}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("owner guard err = %v", err)
	}

	_, err = svc.Fund(context.Background(), projects.Actor{UserID: client, Role: enums.UserRoleClient}, projectID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("status guard err = %v", err)
	}
}
