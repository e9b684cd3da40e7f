package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox/idempotency"
)

const settlementNotificationConsumer = "settlement-notifications"

type repositoryWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

type projectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

type adminLister interface {
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// Consumer turns settlement domain events into in-app notification rows.
type Consumer struct {
	repo         repositoryWriter
	projects     projectFinder
	users        adminLister
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the settlement notification consumer.
func NewConsumer(repo repositoryWriter, projects projectFinder, users adminLister, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil || projects == nil || users == nil {
		return nil, fmt.Errorf("notification consumer dependencies missing")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		projects:     projects,
		users:        users,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// eventPayload is the superset of the settlement event payload fields the
// notification mapping reads.
type eventPayload struct {
	ProjectID    uuid.UUID             `json:"project_id"`
	MilestoneID  uuid.UUID             `json:"milestone_id"`
	DisputeID    uuid.UUID             `json:"dispute_id"`
	ClientID     uuid.UUID             `json:"client_id"`
	VibecoderID  *uuid.UUID            `json:"vibecoder_id"`
	UserID       uuid.UUID             `json:"user_id"`
	Title        string                `json:"title"`
	ProjectTitle string                `json:"project_title"`
	Decision     enums.DisputeDecision `json:"decision"`
	Amount       int64                 `json:"amount"`
	NetAmount    int64                 `json:"net_amount"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !handledEvents[eventType] {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, settlementNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload eventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, settlementNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	if err := c.handle(ctx, eventType, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, settlementNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

var handledEvents = map[enums.OutboxEventType]bool{
	enums.EventProjectCreated:      true,
	enums.EventProjectAssigned:     true,
	enums.EventProjectStarted:      true,
	enums.EventEscrowFunded:        true,
	enums.EventMilestoneSubmitted:  true,
	enums.EventMilestoneApproved:   true,
	enums.EventPaymentReleased:     true,
	enums.EventRevisionRequested:   true,
	enums.EventDisputeOpened:       true,
	enums.EventDisputeResolved:     true,
	enums.EventWithdrawalProcessed: true,
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload eventPayload) error {
	switch eventType {
	case enums.EventProjectCreated:
		return c.notify(ctx, payload.ClientID, enums.NotificationProjectCreated,
			"Proyek Berhasil Dibuat",
			fmt.Sprintf("Proyek %q telah berhasil dibuat. Silakan lakukan pembayaran escrow untuk memulai.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventProjectAssigned:
		return c.notify(ctx, payload.ClientID, enums.NotificationProjectStarted,
			"Vibecoder Mengambil Proyek",
			fmt.Sprintf("Seorang vibecoder telah mengambil proyek %q.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventProjectStarted:
		return c.notify(ctx, payload.ClientID, enums.NotificationProjectStarted,
			"Proyek Dikerjakan",
			fmt.Sprintf("Vibecoder mulai mengerjakan proyek %q.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventEscrowFunded:
		project, err := c.projects.FindByID(ctx, payload.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if project.VibecoderID == nil {
			return nil
		}
		return c.notify(ctx, *project.VibecoderID, enums.NotificationEscrowFunded,
			"Escrow Berhasil Didanai",
			fmt.Sprintf("Dana proyek %q telah berhasil dikunci di escrow. Proyek siap dikerjakan.", project.Title),
			projectLink(project.ID))

	case enums.EventMilestoneSubmitted:
		project, err := c.projects.FindByID(ctx, payload.ProjectID)
		if err != nil {
			return err
		}
		return c.notify(ctx, project.ClientID, enums.NotificationMilestoneSubmitted,
			"Milestone Dikirim",
			fmt.Sprintf("Vibecoder telah mengirim deliverable untuk milestone %q. Silakan review.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventMilestoneApproved:
		project, err := c.projects.FindByID(ctx, payload.ProjectID)
		if err != nil {
			return err
		}
		if project.VibecoderID == nil {
			return nil
		}
		return c.notify(ctx, *project.VibecoderID, enums.NotificationMilestoneApproved,
			"Milestone Disetujui!",
			fmt.Sprintf("Milestone %q telah disetujui. Dana telah ditransfer ke wallet Anda.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventPaymentReleased:
		if payload.VibecoderID == nil {
			return nil
		}
		return c.notify(ctx, *payload.VibecoderID, enums.NotificationPaymentReleased,
			"Pembayaran Diterima!",
			fmt.Sprintf("Dana proyek %q telah dilepaskan ke wallet Anda.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventRevisionRequested:
		if payload.VibecoderID == nil {
			return nil
		}
		return c.notify(ctx, *payload.VibecoderID, enums.NotificationRevisionRequested,
			"Revisi Diminta",
			fmt.Sprintf("Client meminta revisi untuk proyek %q.", payload.Title),
			projectLink(payload.ProjectID))

	case enums.EventDisputeOpened:
		return c.handleDisputeOpened(ctx, payload)

	case enums.EventDisputeResolved:
		return c.handleDisputeResolved(ctx, payload)

	case enums.EventWithdrawalProcessed:
		return c.notify(ctx, payload.UserID, enums.NotificationWithdrawalProcessed,
			"Withdrawal Berhasil",
			fmt.Sprintf("Withdrawal sebesar Rp %s berhasil diproses.", formatRupiah(payload.Amount)),
			linkPtr("/wallet"))
	}
	return nil
}

func (c *Consumer) handleDisputeOpened(ctx context.Context, payload eventPayload) error {
	if payload.VibecoderID != nil {
		if err := c.notify(ctx, *payload.VibecoderID, enums.NotificationDisputeOpened,
			"Sengketa Dibuka",
			fmt.Sprintf("Client membuka sengketa untuk proyek %q. Tim kami akan meninjau.", payload.ProjectTitle),
			disputeLink(payload.DisputeID)); err != nil {
			return err
		}
	}

	admins, err := c.users.ListByRole(ctx, string(enums.UserRoleAdmin))
	if err != nil {
		return err
	}
	for _, admin := range admins {
		if err := c.notify(ctx, admin.ID, enums.NotificationDisputeOpened,
			"Sengketa Baru",
			fmt.Sprintf("Sengketa baru untuk proyek %q perlu ditinjau.", payload.ProjectTitle),
			disputeLink(payload.DisputeID)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handleDisputeResolved(ctx context.Context, payload eventPayload) error {
	clientMsg := fmt.Sprintf("Sengketa untuk proyek %q telah diselesaikan oleh admin.", payload.ProjectTitle)
	vibecoderMsg := clientMsg
	switch payload.Decision {
	case enums.DisputeDecisionClient:
		clientMsg = fmt.Sprintf("Sengketa proyek %q diselesaikan. Dana dikembalikan ke Anda.", payload.ProjectTitle)
	case enums.DisputeDecisionVibecoder:
		vibecoderMsg = fmt.Sprintf("Sengketa proyek %q diselesaikan. Dana ditransfer ke wallet Anda.", payload.ProjectTitle)
	}

	if err := c.notify(ctx, payload.ClientID, enums.NotificationDisputeResolved,
		"Sengketa Diselesaikan", clientMsg, disputeLink(payload.DisputeID)); err != nil {
		return err
	}
	if payload.VibecoderID == nil {
		return nil
	}
	return c.notify(ctx, *payload.VibecoderID, enums.NotificationDisputeResolved,
		"Sengketa Diselesaikan", vibecoderMsg, disputeLink(payload.DisputeID))
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, notificationType enums.NotificationType, title, message string, link *string) error {
	if userID == uuid.Nil {
		return nil
	}
	return c.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    link,
	})
}

func projectLink(id uuid.UUID) *string {
	return linkPtr(fmt.Sprintf("/projects/%s", id))
}

func disputeLink(id uuid.UUID) *string {
	return linkPtr(fmt.Sprintf("/disputes/%s", id))
}

func linkPtr(value string) *string {
	return &value
}

// formatRupiah groups digits with dots the way id-ID locales render amounts.
func formatRupiah(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	if negative {
		return "-" + string(out)
	}
	return string(out)
}
