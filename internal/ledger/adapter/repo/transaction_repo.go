package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

type TransactionRepo struct{}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{}
}

func (r *TransactionRepo) Create(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	return db.WithContext(ctx).Create(t).Error
}

// Get 包含软删除记录，调用方根据 DeletedAt 判断
func (r *TransactionRepo) Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := db.WithContext(ctx).Unscoped().Where("owner_id = ? AND id = ?", ownerID, id).First(&t).Error
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &t, nil
}

func (r *TransactionRepo) Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := db.WithContext(ctx).Unscoped().Clauses(forUpdate).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&t).Error
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &t, nil
}

func (r *TransactionRepo) Save(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	return db.WithContext(ctx).Save(t).Error
}

// SoftDelete UPDATE transactions SET deleted_at = now() WHERE id = ?
func (r *TransactionRepo) SoftDelete(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	return db.WithContext(ctx).Delete(t).Error
}

func (r *TransactionRepo) ListLinked(ctx context.Context, db *gorm.DB, ownerID, itemID int64, sources []domain.TransactionSource) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := db.WithContext(ctx).
		Where("owner_id = ? AND linked_item_id = ? AND source IN ?", ownerID, itemID, sources).
		Order("transaction_date DESC, id DESC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("list linked transactions: %w", err)
	}
	return txs, nil
}

func (r *TransactionRepo) SoftDeletePlannedByChains(ctx context.Context, db *gorm.DB, ownerID int64, chainIDs []int64, keepRealized bool) (int64, error) {
	if len(chainIDs) == 0 {
		return 0, nil
	}
	q := db.WithContext(ctx).
		Where("owner_id = ? AND chain_id IN ? AND transaction_type = ?", ownerID, chainIDs, domain.Planned)
	if keepRealized {
		q = q.Where("status <> ?", domain.StatusRealized)
	}
	result := q.Delete(&domain.Transaction{})
	return result.RowsAffected, result.Error
}

// Page 按 (日期, id) 倒序的游标分页，多取一条用于判断是否还有下一页
func (r *TransactionRepo) Page(ctx context.Context, db *gorm.DB, ownerID int64, f domain.TransactionFilter) ([]domain.Transaction, error) {
	q := db.WithContext(ctx).Model(&domain.Transaction{}).Where("owner_id = ?", ownerID)

	switch {
	case f.DeletedOnly:
		q = q.Unscoped().Where("deleted_at IS NOT NULL")
	case f.IncludeDeleted:
		q = q.Unscoped()
	}
	if f.DateFrom != nil {
		q = q.Where("transaction_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("transaction_date <= ?", *f.DateTo)
	}
	if len(f.ItemIDs) > 0 {
		q = q.Where(
			"primary_item_id IN ? OR counterparty_item_id IN ? OR primary_card_item_id IN ? OR counterparty_card_item_id IN ?",
			f.ItemIDs, f.ItemIDs, f.ItemIDs, f.ItemIDs,
		)
	}
	if len(f.Directions) > 0 {
		q = q.Where("direction IN ?", f.Directions)
	}
	if len(f.Types) > 0 {
		q = q.Where("transaction_type IN ?", f.Types)
	}
	if f.ChainID != nil {
		q = q.Where("chain_id = ?", *f.ChainID)
	}
	if f.Cursor != nil {
		q = q.Where("transaction_date < ? OR (transaction_date = ? AND id < ?)",
			f.Cursor.Date, f.Cursor.Date, f.Cursor.ID)
	}

	var txs []domain.Transaction
	err := q.Order("transaction_date DESC, id DESC").Limit(f.Limit + 1).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("page transactions: %w", err)
	}
	return txs, nil
}
