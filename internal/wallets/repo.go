package wallets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, walletID uuid.UUID, amount int64) error
	Debit(ctx context.Context, walletID uuid.UUID, amount int64) (int64, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error)
	ListAll(ctx context.Context, limit int, afterID *uuid.UUID) ([]models.Wallet, error)
	SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Credit bumps balance and total_earned together. Always call inside the same
// transaction as the matching WalletTransaction append.
func (r *repository) Credit(ctx context.Context, walletID uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance = balance + ?,
			total_earned = total_earned + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, amount, walletID).Error
}

// Debit decrements balance only when funds cover the amount. The returned row
// count is zero when the balance guard lost, so callers can surface
// INSUFFICIENT_FUNDS without a prior read.
func (r *repository) Debit(ctx context.Context, walletID uuid.UUID, amount int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance = balance - ?,
			total_withdrawn = total_withdrawn + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance >= ?
	`, amount, amount, walletID, amount)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	q := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAll(ctx context.Context, limit int, afterID *uuid.UUID) ([]models.Wallet, error) {
	var rows []models.Wallet
	q := r.db.WithContext(ctx).Order("id ASC")
	if afterID != nil {
		q = q.Where("id > ?", *afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumTransactions folds the signed transaction log for one wallet. Withdrawals
// are stored positive with type WITHDRAWAL, so they are subtracted here.
func (r *repository) SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE WHEN type = 'WITHDRAWAL' THEN -amount ELSE amount END), 0)
		FROM wallet_transactions
		WHERE wallet_id = ? AND status = 'COMPLETED'
	`, walletID).Scan(&total).Error
	return total, err
}
