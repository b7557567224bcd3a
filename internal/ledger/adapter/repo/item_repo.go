package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finplan/backend/internal/ledger/domain"
)

// forUpdate SELECT ... FOR UPDATE (SQLite 方言会忽略)
var forUpdate = clause.Locking{Strength: "UPDATE"}

// notFound 把 gorm.ErrRecordNotFound 转成领域错误
func notFound(err error, what string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(what, id)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

type ItemRepo struct{}

func NewItemRepo() *ItemRepo {
	return &ItemRepo{}
}

func (r *ItemRepo) Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Item, error) {
	var item domain.Item
	if err := db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&item).Error; err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

// Lock 悲观锁，必须在事务内调用
func (r *ItemRepo) Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Clauses(forUpdate).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&item).Error
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

// LockMany 一条语句按 id 升序锁定所有涉及的资产
func (r *ItemRepo) LockMany(ctx context.Context, db *gorm.DB, ownerID int64, ids []int64) (map[int64]*domain.Item, error) {
	uniq := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	var items []domain.Item
	err := db.WithContext(ctx).Clauses(forUpdate).
		Where("owner_id = ? AND id IN ?", ownerID, uniq).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}

	out := make(map[int64]*domain.Item, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	for _, id := range uniq {
		if _, ok := out[id]; !ok {
			return nil, domain.NotFound("item", id)
		}
	}
	return out, nil
}

func (r *ItemRepo) Create(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Create(item).Error
}

// Save 更新除余额外的全部字段；余额只能经 SaveBalance 写入
func (r *ItemRepo) Save(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Model(item).
		Select("*").
		Omit("id", "owner_id", "current_value", "position_lots", "created_at").
		Updates(item).Error
}

// SaveBalance 只更新余额字段，其它字段保持不变
func (r *ItemRepo) SaveBalance(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	result := db.WithContext(ctx).Model(&domain.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"current_value": item.CurrentValue,
			"position_lots": item.PositionLots,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("item", item.ID)
	}
	return nil
}

func (r *ItemRepo) List(ctx context.Context, db *gorm.DB, ownerID int64, includeArchived bool) ([]domain.Item, error) {
	q := db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if !includeArchived {
		q = q.Where("archived_at IS NULL")
	}
	var items []domain.Item
	if err := q.Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------------------------------------------------

type PlanSettingsRepo struct{}

func NewPlanSettingsRepo() *PlanSettingsRepo {
	return &PlanSettingsRepo{}
}

func (r *PlanSettingsRepo) Get(ctx context.Context, db *gorm.DB, itemID int64) (*domain.ItemPlanSettings, error) {
	var s domain.ItemPlanSettings
	err := db.WithContext(ctx).Where("item_id = ?", itemID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PlanSettingsRepo) Save(ctx context.Context, db *gorm.DB, s *domain.ItemPlanSettings) error {
	return db.WithContext(ctx).Save(s).Error
}
