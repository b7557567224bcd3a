package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

// Migrate 建表 / 补列
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Item{},
		&domain.ItemPlanSettings{},
		&domain.TransactionChain{},
		&domain.Transaction{},
		&domain.Category{},
		&domain.CategoryState{},
		&domain.Counterparty{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedCategory 全局分类，已存在则跳过
type SeedCategory struct {
	Name  string
	Scope domain.CategoryScope
}

// SeedCategories 写入自动交易依赖的全局分类
func SeedCategories(db *gorm.DB, categories []SeedCategory) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, c := range categories {
			// Find 未命中不报错，gorm 不会记 record not found
			var existing []domain.Category
			res := tx.Where("name = ? AND owner_id IS NULL", c.Name).Limit(1).Find(&existing)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				continue
			}
			if err := tx.Create(&domain.Category{Name: c.Name, Scope: c.Scope}).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
		}
		return nil
	})
}
