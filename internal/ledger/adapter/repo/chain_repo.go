package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

type ChainRepo struct{}

func NewChainRepo() *ChainRepo {
	return &ChainRepo{}
}

func (r *ChainRepo) Create(ctx context.Context, db *gorm.DB, c *domain.TransactionChain) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *ChainRepo) Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.TransactionChain, error) {
	var c domain.TransactionChain
	if err := db.WithContext(ctx).Unscoped().Where("owner_id = ? AND id = ?", ownerID, id).First(&c).Error; err != nil {
		return nil, notFound(err, "chain", id)
	}
	return &c, nil
}

func (r *ChainRepo) Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.TransactionChain, error) {
	var c domain.TransactionChain
	err := db.WithContext(ctx).Unscoped().Clauses(forUpdate).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&c).Error
	if err != nil {
		return nil, notFound(err, "chain", id)
	}
	return &c, nil
}

func (r *ChainRepo) SoftDelete(ctx context.Context, db *gorm.DB, c *domain.TransactionChain) error {
	return db.WithContext(ctx).Delete(c).Error
}

// ListAuto 某资产未删除的自动链
func (r *ChainRepo) ListAuto(ctx context.Context, db *gorm.DB, ownerID, itemID int64) ([]domain.TransactionChain, error) {
	var chains []domain.TransactionChain
	err := db.WithContext(ctx).
		Where("owner_id = ? AND linked_item_id = ? AND source = ?", ownerID, itemID, domain.ChainAuto).
		Order("id").
		Find(&chains).Error
	return chains, err
}

func (r *ChainRepo) List(ctx context.Context, db *gorm.DB, ownerID int64) ([]domain.TransactionChain, error) {
	var chains []domain.TransactionChain
	err := db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&chains).Error
	return chains, err
}
