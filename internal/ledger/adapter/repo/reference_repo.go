package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

// ReferenceRepo 分类与交易对方的只读查询
type ReferenceRepo struct{}

func NewReferenceRepo() *ReferenceRepo {
	return &ReferenceRepo{}
}

// Category 用户自己的或全局的分类；已归档或被用户停用的视为无效
func (r *ReferenceRepo) Category(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).
		Where("id = ? AND (owner_id = ? OR owner_id IS NULL)", id, ownerID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Validation(domain.ReasonInvalidReference, "category_id", "category %d not found", id)
		}
		return nil, err
	}
	return r.checkCategory(ctx, db, ownerID, &c)
}

func (r *ReferenceRepo) CategoryByName(ctx context.Context, db *gorm.DB, ownerID int64, name string) (*domain.Category, error) {
	var c domain.Category
	// 用户自建的优先于全局
	err := db.WithContext(ctx).
		Where("name = ? AND (owner_id = ? OR owner_id IS NULL)", name, ownerID).
		Order("owner_id IS NULL, id").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Validation(domain.ReasonInvalidReference, "category", "category %q not found", name)
		}
		return nil, err
	}
	return r.checkCategory(ctx, db, ownerID, &c)
}

func (r *ReferenceRepo) checkCategory(ctx context.Context, db *gorm.DB, ownerID int64, c *domain.Category) (*domain.Category, error) {
	if c.ArchivedAt != nil {
		return nil, domain.Validation(domain.ReasonInvalidReference, "category_id", "category %q is archived", c.Name)
	}
	if c.OwnerID == nil {
		var state domain.CategoryState
		err := db.WithContext(ctx).Where("owner_id = ? AND category_id = ?", ownerID, c.ID).First(&state).Error
		if err == nil && !state.Enabled {
			return nil, domain.Validation(domain.ReasonInvalidReference, "category_id", "category %q is disabled", c.Name)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return c, nil
}

func (r *ReferenceRepo) Counterparty(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Counterparty, error) {
	var c domain.Counterparty
	err := db.WithContext(ctx).
		Where("id = ? AND (owner_id = ? OR owner_id IS NULL)", id, ownerID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Validation(domain.ReasonInvalidReference, "counterparty_id", "counterparty %d not found", id)
		}
		return nil, err
	}
	return &c, nil
}
