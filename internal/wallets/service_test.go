package wallets

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fakeDisputeChecker struct {
	active bool
	calls  int
}

func (f *fakeDisputeChecker) HasActiveForVibecoder(_ context.Context, _ uuid.UUID) (bool, error) {
	f.calls++
	return f.active, nil
}

type fakeWalletRepo struct {
	wallet     *models.Wallet
	debitRows  int64
	debitCalls int
	txns       []*models.WalletTransaction
}

func (f *fakeWalletRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeWalletRepo) Create(_ context.Context, wallet *models.Wallet) error {
	f.wallet = wallet
	return nil
}

func (f *fakeWalletRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if f.wallet == nil || f.wallet.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f.wallet
	return &cp, nil
}

func (f *fakeWalletRepo) Credit(_ context.Context, _ uuid.UUID, amount int64) error {
	f.wallet.Balance += amount
	return nil
}

func (f *fakeWalletRepo) Debit(_ context.Context, _ uuid.UUID, amount int64) (int64, error) {
	f.debitCalls++
	if f.debitRows > 0 {
		f.wallet.Balance -= amount
	}
	return f.debitRows, nil
}

func (f *fakeWalletRepo) CreateTransaction(_ context.Context, txn *models.WalletTransaction) error {
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeWalletRepo) ListTransactions(_ context.Context, _ uuid.UUID, _ int) ([]models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWalletRepo) ListAll(_ context.Context, _ int, _ *uuid.UUID) ([]models.Wallet, error) {
	return nil, nil
}

func (f *fakeWalletRepo) SumTransactions(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func newWithdrawFixture(t *testing.T, balance int64, debitRows int64, activeDispute bool) (Service, *fakeWalletRepo, *fakeDisputeChecker, *stubOutbox) {
	t.Helper()
	userID := uuid.New()
	repo := &fakeWalletRepo{
		wallet:    &models.Wallet{ID: uuid.New(), UserID: userID, Balance: balance},
		debitRows: debitRows,
	}
	checker := &fakeDisputeChecker{active: activeDispute}
	ob := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, ob, checker, 20)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, checker, ob
}

func TestWithdrawBlockedByActiveDispute(t *testing.T) {
	svc, repo, checker, ob := newWithdrawFixture(t, 5_000_000, 1, true)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID:      repo.wallet.UserID,
		Role:        enums.UserRoleVibecoder,
		Amount:      1_000_000,
		BankName:    "BCA",
		BankAccount: "1234567890",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDisputeBlocked) {
		t.Fatalf("err = %v", err)
	}
	if checker.calls != 1 {
		t.Fatalf("dispute checks = %d", checker.calls)
	}
	if repo.debitCalls != 0 {
		t.Fatal("balance should not be touched while a dispute is active")
	}
	if len(repo.txns) != 0 || len(ob.events) != 0 {
		t.Fatalf("txns = %d, events = %d", len(repo.txns), len(ob.events))
	}
}

func TestWithdrawSucceedsWithoutActiveDispute(t *testing.T) {
	svc, repo, _, ob := newWithdrawFixture(t, 5_000_000, 1, false)

	dto, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID:      repo.wallet.UserID,
		Role:        enums.UserRoleVibecoder,
		Amount:      1_000_000,
		BankName:    "BCA",
		BankAccount: "1234567890",
	})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if dto.Type != enums.WalletTransactionTypeWithdrawal || dto.Status != enums.WalletTransactionStatusCompleted {
		t.Fatalf("dto = %+v", dto)
	}
	if dto.Amount != 1_000_000 {
		t.Fatalf("amount = %d", dto.Amount)
	}
	if dto.Reference == nil || !strings.HasPrefix(*dto.Reference, "WD-") {
		t.Fatalf("reference = %v", dto.Reference)
	}
	if !strings.Contains(dto.Description, "BCA") || !strings.Contains(dto.Description, "1234567890") {
		t.Fatalf("description = %q", dto.Description)
	}
	if len(repo.txns) != 1 || repo.txns[0].WalletID != repo.wallet.ID {
		t.Fatalf("txns = %+v", repo.txns)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventWithdrawalProcessed {
		t.Fatalf("events = %+v", ob.events)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	svc, repo, _, ob := newWithdrawFixture(t, 500, 0, false)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID:      repo.wallet.UserID,
		Role:        enums.UserRoleVibecoder,
		Amount:      1_000_000,
		BankName:    "BCA",
		BankAccount: "1234567890",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("err = %v", err)
	}
	if len(repo.txns) != 0 || len(ob.events) != 0 {
		t.Fatalf("txns = %d, events = %d", len(repo.txns), len(ob.events))
	}
}

func TestWithdrawRejectsNonVibecoder(t *testing.T) {
	svc, repo, checker, _ := newWithdrawFixture(t, 5_000_000, 1, false)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID:      repo.wallet.UserID,
		Role:        enums.UserRoleClient,
		Amount:      1_000_000,
		BankName:    "BCA",
		BankAccount: "1234567890",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("err = %v", err)
	}
	if checker.calls != 0 {
		t.Fatal("role check should run before the dispute lookup")
	}
}
