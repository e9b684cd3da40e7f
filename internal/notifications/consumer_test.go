package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
)

type fakeWriter struct {
	rows []*models.Notification
}

func (f *fakeWriter) Create(_ context.Context, n *models.Notification) error {
	f.rows = append(f.rows, n)
	return nil
}

type fakeProjects struct {
	byID map[uuid.UUID]*models.Project
}

func (f *fakeProjects) FindByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

type fakeAdmins struct {
	admins []models.User
}

func (f *fakeAdmins) ListByRole(_ context.Context, _ string) ([]models.User, error) {
	return f.admins, nil
}

func newTestConsumer(writer *fakeWriter, projects *fakeProjects, admins *fakeAdmins) *Consumer {
	return &Consumer{
		repo:     writer,
		projects: projects,
		users:    admins,
		logg:     logger.New(logger.Options{ServiceName: "test"}),
	}
}

func TestHandleProjectCreatedNotifiesClient(t *testing.T) {
	writer := &fakeWriter{}
	consumer := newTestConsumer(writer, &fakeProjects{}, &fakeAdmins{})
	client := uuid.New()
	projectID := uuid.New()

	err := consumer.handle(context.Background(), enums.EventProjectCreated, eventPayload{
		ProjectID: projectID,
		ClientID:  client,
		Title:     "Website Toko Online",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("rows = %d", len(writer.rows))
	}
	row := writer.rows[0]
	if row.UserID != client || row.Type != enums.NotificationProjectCreated {
		t.Fatalf("row = %+v", row)
	}
	if row.Title != "Proyek Berhasil Dibuat" {
		t.Fatalf("title = %s", row.Title)
	}
}

func TestHandleEscrowFundedNotifiesAssignedVibecoder(t *testing.T) {
	writer := &fakeWriter{}
	projectID := uuid.New()
	vibecoder := uuid.New()
	projects := &fakeProjects{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Title: "Dashboard", VibecoderID: &vibecoder},
	}}
	consumer := newTestConsumer(writer, projects, &fakeAdmins{})

	err := consumer.handle(context.Background(), enums.EventEscrowFunded, eventPayload{ProjectID: projectID})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 1 || writer.rows[0].UserID != vibecoder {
		t.Fatalf("rows = %+v", writer.rows)
	}
	if writer.rows[0].Type != enums.NotificationEscrowFunded {
		t.Fatalf("type = %s", writer.rows[0].Type)
	}
}

func TestHandleEscrowFundedSkipsUnassignedProject(t *testing.T) {
	writer := &fakeWriter{}
	projectID := uuid.New()
	projects := &fakeProjects{byID: map[uuid.UUID]*models.Project{
		projectID: {ID: projectID, Title: "Dashboard"},
	}}
	consumer := newTestConsumer(writer, projects, &fakeAdmins{})

	if err := consumer.handle(context.Background(), enums.EventEscrowFunded, eventPayload{ProjectID: projectID}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 0 {
		t.Fatalf("rows = %+v", writer.rows)
	}
}

func TestHandleDisputeOpenedFansOutToAdmins(t *testing.T) {
	writer := &fakeWriter{}
	vibecoder := uuid.New()
	admins := &fakeAdmins{admins: []models.User{{ID: uuid.New()}, {ID: uuid.New()}}}
	consumer := newTestConsumer(writer, &fakeProjects{}, admins)

	err := consumer.handle(context.Background(), enums.EventDisputeOpened, eventPayload{
		DisputeID:    uuid.New(),
		ProjectID:    uuid.New(),
		VibecoderID:  &vibecoder,
		ProjectTitle: "Store",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 3 {
		t.Fatalf("rows = %d", len(writer.rows))
	}
	if writer.rows[0].UserID != vibecoder || writer.rows[0].Title != "Sengketa Dibuka" {
		t.Fatalf("vibecoder row = %+v", writer.rows[0])
	}
	if writer.rows[1].Title != "Sengketa Baru" {
		t.Fatalf("admin row = %+v", writer.rows[1])
	}
}

func TestHandleDisputeResolvedMessagesFollowDecision(t *testing.T) {
	writer := &fakeWriter{}
	client := uuid.New()
	vibecoder := uuid.New()
	consumer := newTestConsumer(writer, &fakeProjects{}, &fakeAdmins{})

	err := consumer.handle(context.Background(), enums.EventDisputeResolved, eventPayload{
		DisputeID:    uuid.New(),
		ClientID:     client,
		VibecoderID:  &vibecoder,
		Decision:     enums.DisputeDecisionVibecoder,
		ProjectTitle: "App",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 2 {
		t.Fatalf("rows = %d", len(writer.rows))
	}
	if writer.rows[0].UserID != client {
		t.Fatalf("first row = %+v", writer.rows[0])
	}
	if writer.rows[1].Message != `Sengketa proyek "App" diselesaikan. Dana ditransfer ke wallet Anda.` {
		t.Fatalf("vibecoder message = %s", writer.rows[1].Message)
	}
}

func TestHandleWithdrawalFormatsAmount(t *testing.T) {
	writer := &fakeWriter{}
	user := uuid.New()
	consumer := newTestConsumer(writer, &fakeProjects{}, &fakeAdmins{})

	err := consumer.handle(context.Background(), enums.EventWithdrawalProcessed, eventPayload{
		UserID: user,
		Amount: 1_500_000,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if writer.rows[0].Message != "Withdrawal sebesar Rp 1.500.000 berhasil diproses." {
		t.Fatalf("message = %s", writer.rows[0].Message)
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1_000:      "1.000",
		25_000:     "25.000",
		8_000_000:  "8.000.000",
		-1_234_567: "-1.234.567",
	}
	for amount, want := range cases {
		if got := formatRupiah(amount); got != want {
			t.Errorf("formatRupiah(%d) = %s, want %s", amount, got, want)
		}
	}
}
