package disputes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/fees"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// escrowSettler covers the bulk escrow moves a verdict can trigger.
type escrowSettler interface {
	ReleaseAllLocked(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, at time.Time) (int64, error)
	RefundAllLocked(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, at time.Time) (int64, error)
	SumLockedNet(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error)
}

type walletCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallets.CreditInput) error
}

// OpenedEvent is the payload for a new arbitration case.
type OpenedEvent struct {
	DisputeID   uuid.UUID           `json:"dispute_id"`
	ProjectID   uuid.UUID           `json:"project_id"`
	ClientID    uuid.UUID           `json:"client_id"`
	VibecoderID uuid.UUID           `json:"vibecoder_id"`
	Reason      enums.DisputeReason `json:"reason"`
	Title       string              `json:"project_title"`
}

// ResolvedEvent is the payload for an applied verdict. ClientRefund is the
// client-side share of the settled net total; it is reported for the payment
// reversal on the original rail and never credited to a wallet.
type ResolvedEvent struct {
	DisputeID       uuid.UUID             `json:"dispute_id"`
	ProjectID       uuid.UUID             `json:"project_id"`
	ClientID        uuid.UUID             `json:"client_id"`
	VibecoderID     uuid.UUID             `json:"vibecoder_id"`
	Decision        enums.DisputeDecision `json:"decision"`
	RefundPercent   int64                 `json:"refund_percent"`
	VibecoderCredit int64                 `json:"vibecoder_credit"`
	ClientRefund    int64                 `json:"client_refund"`
	Title           string                `json:"project_title"`
}

// Service covers arbitration from opening to the settlement verdict.
type Service interface {
	Open(ctx context.Context, actor projects.Actor, projectID uuid.UUID, req OpenRequest) (*DisputeDTO, error)
	Get(ctx context.Context, actor projects.Actor, id uuid.UUID) (*DisputeDTO, error)
	List(ctx context.Context, actor projects.Actor, status *enums.DisputeStatus) ([]DisputeDTO, error)
	Resolve(ctx context.Context, actor projects.Actor, id uuid.UUID, req ResolveRequest) (*DisputeDTO, error)
}

type service struct {
	repo             Repository
	projects         projects.Repository
	escrow           escrowSettler
	wallets          walletCreditor
	tx               txRunner
	outbox           outboxPublisher
	defaultRefundPct int64
}

// NewService builds the dispute service. defaultRefundPct is the split-verdict
// refund share applied when the admin does not supply one.
func NewService(repo Repository, projectRepo projects.Repository, settler escrowSettler, creditor walletCreditor, tx txRunner, ob outboxPublisher, defaultRefundPct int64) (Service, error) {
	if repo == nil || projectRepo == nil || settler == nil || creditor == nil || tx == nil || ob == nil {
		return nil, fmt.Errorf("dispute service dependencies missing")
	}
	if defaultRefundPct < 0 || defaultRefundPct > 100 {
		return nil, fmt.Errorf("default refund percent out of range: %d", defaultRefundPct)
	}
	return &service{
		repo:             repo,
		projects:         projectRepo,
		escrow:           settler,
		wallets:          creditor,
		tx:               tx,
		outbox:           ob,
		defaultRefundPct: defaultRefundPct,
	}, nil
}

var disputableStatuses = []enums.ProjectStatus{
	enums.ProjectStatusEscrowFunded,
	enums.ProjectStatusInProgress,
	enums.ProjectStatusSubmitted,
	enums.ProjectStatusRevisionRequested,
}

func (s *service) Open(ctx context.Context, actor projects.Actor, projectID uuid.UUID, req OpenRequest) (*DisputeDTO, error) {
	if actor.Role != enums.UserRoleClient {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can open disputes")
	}
	if !req.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute reason")
	}
	if req.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		prepo := s.projects.WithTx(tx)
		project, err := prepo.FindByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if project.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning client can open a dispute")
		}
		if project.VibecoderID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project has no vibecoder to dispute")
		}

		repo := s.repo.WithTx(tx)
		active, err := repo.CountActiveForProject(ctx, projectID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing disputes")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "project already has an active dispute")
		}

		rows, err := prepo.UpdateWhereStatus(ctx, projectID, disputableStatuses,
			map[string]any{"status": enums.ProjectStatusDisputed})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project disputed")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project cannot be disputed in its current state")
		}

		dispute = &models.Dispute{
			ProjectID:   projectID,
			ClientID:    project.ClientID,
			VibecoderID: *project.VibecoderID,
			Reason:      req.Reason,
			Description: req.Description,
			Status:      enums.DisputeStatusOpen,
		}
		if err := repo.Create(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: OpenedEvent{
				DisputeID:   dispute.ID,
				ProjectID:   projectID,
				ClientID:    project.ClientID,
				VibecoderID: *project.VibecoderID,
				Reason:      req.Reason,
				Title:       project.Title,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(dispute), nil
}

func (s *service) Get(ctx context.Context, actor projects.Actor, id uuid.UUID) (*DisputeDTO, error) {
	dispute, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin && dispute.ClientID != actor.UserID && dispute.VibecoderID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dispute access denied")
	}
	return toDTO(dispute), nil
}

func (s *service) List(ctx context.Context, actor projects.Actor, status *enums.DisputeStatus) ([]DisputeDTO, error) {
	var (
		rows []models.Dispute
		err  error
	)
	if actor.Role == enums.UserRoleAdmin {
		rows, err = s.repo.ListAll(ctx, status)
	} else {
		rows, err = s.repo.ListForUser(ctx, actor.UserID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	out := make([]DisputeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// Resolve applies an admin verdict and settles every still-locked escrow row
// in the same transaction. RESOLVED_CLIENT refunds, RESOLVED_VIBECODER pays
// out in full, RESOLVED_SPLIT pays the vibecoder the non-refunded share of
// the locked net total. Client refunds travel back over the original payment
// rail, so only vibecoder credits touch wallets here.
func (s *service) Resolve(ctx context.Context, actor projects.Actor, id uuid.UUID, req ResolveRequest) (*DisputeDTO, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can resolve disputes")
	}
	if !req.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid decision")
	}
	if req.Resolution == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution required")
	}
	refundPct := s.defaultRefundPct
	if req.RefundPercent != nil {
		refundPct = *req.RefundPercent
	}
	if refundPct < 0 || refundPct > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund percent out of range")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !loaded.Status.IsActive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute already resolved")
		}
		project, err := s.projects.WithTx(tx).FindByID(ctx, loaded.ProjectID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}

		now := time.Now().UTC()
		rows, err := repo.Resolve(ctx, id, req.Decision.Status(), req.Resolution, req.AdminNotes, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve dispute")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute already resolved")
		}

		var credit, refund int64
		switch req.Decision {
		case enums.DisputeDecisionClient:
			netTotal, err := s.escrow.SumLockedNet(ctx, tx, loaded.ProjectID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum locked escrow")
			}
			refund = fees.RefundShare(netTotal, 100)
			if _, err := s.escrow.RefundAllLocked(ctx, tx, loaded.ProjectID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund escrow")
			}
			if err := s.updateProject(ctx, tx, loaded.ProjectID, map[string]any{
				"status": enums.ProjectStatusRefunded,
			}); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventEscrowRefunded,
				AggregateType: enums.AggregateEscrow,
				AggregateID:   loaded.ProjectID,
				Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
				Data:          resolvedEvent(loaded, project.Title, req.Decision, refundPct, 0, refund),
			}); err != nil {
				return err
			}

		case enums.DisputeDecisionVibecoder:
			credit, refund, err = s.releaseAndCredit(ctx, tx, loaded, project.Title, 0)
			if err != nil {
				return err
			}
			if err := s.updateProject(ctx, tx, loaded.ProjectID, map[string]any{
				"status":       enums.ProjectStatusPaymentReleased,
				"completed_at": now,
			}); err != nil {
				return err
			}

		case enums.DisputeDecisionSplit:
			credit, refund, err = s.releaseAndCredit(ctx, tx, loaded, project.Title, refundPct)
			if err != nil {
				return err
			}
			if err := s.updateProject(ctx, tx, loaded.ProjectID, map[string]any{
				"status":       enums.ProjectStatusCompleted,
				"completed_at": now,
			}); err != nil {
				return err
			}
		}

		loaded.Status = req.Decision.Status()
		loaded.Resolution = &req.Resolution
		loaded.AdminNotes = req.AdminNotes
		loaded.ResolvedAt = &now
		dispute = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeResolved,
			AggregateType: enums.AggregateDispute,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data:          resolvedEvent(loaded, project.Title, req.Decision, refundPct, credit, refund),
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(dispute), nil
}

// releaseAndCredit flips all locked rows to RELEASED and credits the
// vibecoder with the non-refunded share of the locked net total. The second
// return is the client-side share, reported on the verdict event.
func (s *service) releaseAndCredit(ctx context.Context, tx *gorm.DB, dispute *models.Dispute, title string, refundPct int64) (int64, int64, error) {
	netTotal, err := s.escrow.SumLockedNet(ctx, tx, dispute.ProjectID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum locked escrow")
	}
	if _, err := s.escrow.ReleaseAllLocked(ctx, tx, dispute.ProjectID, time.Now().UTC()); err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release escrow")
	}

	credit := fees.SplitShare(netTotal, refundPct)
	refund := fees.RefundShare(netTotal, refundPct)
	if credit <= 0 {
		return 0, refund, nil
	}
	disputeRef := dispute.ID.String()
	if err := s.wallets.Credit(ctx, tx, wallets.CreditInput{
		UserID:      dispute.VibecoderID,
		Amount:      credit,
		Description: fmt.Sprintf("Dispute resolved for project: %s", title),
		Reference:   &disputeRef,
	}); err != nil {
		return 0, 0, err
	}
	return credit, refund, nil
}

func (s *service) updateProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, updates map[string]any) error {
	rows, err := s.projects.WithTx(tx).UpdateWhereStatus(ctx, projectID,
		[]enums.ProjectStatus{enums.ProjectStatusDisputed}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update project status")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "project left the disputed state")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Dispute, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	d, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return d, nil
}

func resolvedEvent(d *models.Dispute, title string, decision enums.DisputeDecision, refundPct, credit, refund int64) ResolvedEvent {
	return ResolvedEvent{
		DisputeID:       d.ID,
		ProjectID:       d.ProjectID,
		ClientID:        d.ClientID,
		VibecoderID:     d.VibecoderID,
		Decision:        decision,
		RefundPercent:   refundPct,
		VibecoderCredit: credit,
		ClientRefund:    refund,
		Title:           title,
	}
}
