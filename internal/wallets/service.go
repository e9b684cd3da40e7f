package wallets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ActiveDisputeChecker reports whether a vibecoder has an unresolved dispute.
type ActiveDisputeChecker interface {
	HasActiveForVibecoder(ctx context.Context, vibecoderID uuid.UUID) (bool, error)
}

// CreditInput captures an earning credited into a vibecoder's wallet.
type CreditInput struct {
	UserID              uuid.UUID
	Amount              int64
	EscrowTransactionID *uuid.UUID
	Description         string
	Reference           *string
}

// WithdrawInput carries a withdrawal request with the acting user's identity.
type WithdrawInput struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	Amount      int64
	BankName    string
	BankAccount string
}

// WithdrawalEvent is emitted after a completed withdrawal.
type WithdrawalEvent struct {
	WalletID  uuid.UUID `json:"wallet_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
}

// Service defines wallet reads and money movement.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*WalletDTO, error)
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) error
	Withdraw(ctx context.Context, input WithdrawInput) (*WalletTransactionDTO, error)
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	disputes      ActiveDisputeChecker
	recentTxLimit int
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, disputes ActiveDisputeChecker, recentTxLimit int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if disputes == nil {
		return nil, fmt.Errorf("dispute checker required")
	}
	if recentTxLimit <= 0 {
		recentTxLimit = 20
	}
	return &service{
		repo:          repo,
		tx:            tx,
		outbox:        ob,
		disputes:      disputes,
		recentTxLimit: recentTxLimit,
	}, nil
}

// Get returns the wallet with its recent transactions, creating it lazily for
// accounts that predate wallet-at-registration.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*WalletDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	wallet, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = &models.Wallet{UserID: userID}
		if createErr := s.repo.Create(ctx, wallet); createErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create wallet")
		}
		return walletToDTO(wallet, nil), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	txns, err := s.repo.ListTransactions(ctx, wallet.ID, s.recentTxLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transactions")
	}
	return walletToDTO(wallet, txns), nil
}

// Credit runs inside the caller's transaction: the balance bump and the audit
// row commit together with whatever settlement triggered them.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet credit")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByUserID(ctx, input.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = &models.Wallet{UserID: input.UserID}
		if createErr := repo.Create(ctx, wallet); createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create wallet")
		}
	} else if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	if err := repo.Credit(ctx, wallet.ID, input.Amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}

	txn := &models.WalletTransaction{
		WalletID:            wallet.ID,
		EscrowTransactionID: input.EscrowTransactionID,
		Type:                enums.WalletTransactionTypeEscrowRelease,
		Amount:              input.Amount,
		Status:              enums.WalletTransactionStatusCompleted,
		Description:         input.Description,
		Reference:           input.Reference,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
	}
	return nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*WalletTransactionDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Role != enums.UserRoleVibecoder {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vibecoders can withdraw")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	if input.BankName == "" || input.BankAccount == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank details required")
	}

	blocked, err := s.disputes.HasActiveForVibecoder(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active disputes")
	}
	if blocked {
		return nil, pkgerrors.New(pkgerrors.CodeDisputeBlocked, "withdrawals are blocked while a dispute is active")
	}

	reference := fmt.Sprintf("WD-%d", time.Now().UnixMilli())
	var result *models.WalletTransaction

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := repo.FindByUserID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}

		rows, err := repo.Debit(ctx, wallet.ID, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance does not cover the withdrawal")
		}

		txn := &models.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        enums.WalletTransactionTypeWithdrawal,
			Amount:      input.Amount,
			Status:      enums.WalletTransactionStatusCompleted,
			Description: fmt.Sprintf("Withdrawal to %s - %s", input.BankName, input.BankAccount),
			Reference:   &reference,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
		}
		result = txn

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalProcessed,
			AggregateType: enums.AggregateWallet,
			AggregateID:   wallet.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(input.Role)},
			Data: WithdrawalEvent{
				WalletID:  wallet.ID,
				UserID:    input.UserID,
				Amount:    input.Amount,
				Reference: reference,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	dto := transactionToDTO(*result)
	return &dto, nil
}
