package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 仓储接口 (Port)，由 adapter/repo 实现
// 所有方法都接收 db 会话，调用方决定是否在事务中执行

// ItemRepository 资产仓储
type ItemRepository interface {
	Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Item, error)

	// Lock SELECT ... FOR UPDATE
	Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Item, error)

	// LockMany 按 id 升序加锁，避免死锁
	LockMany(ctx context.Context, db *gorm.DB, ownerID int64, ids []int64) (map[int64]*Item, error)

	Create(ctx context.Context, db *gorm.DB, item *Item) error
	Save(ctx context.Context, db *gorm.DB, item *Item) error

	// SaveBalance 只写 current_value / position_lots
	SaveBalance(ctx context.Context, db *gorm.DB, item *Item) error

	List(ctx context.Context, db *gorm.DB, ownerID int64, includeArchived bool) ([]Item, error)
}

type PlanSettingsRepository interface {
	// Get 不存在时返回 nil, nil
	Get(ctx context.Context, db *gorm.DB, itemID int64) (*ItemPlanSettings, error)
	Save(ctx context.Context, db *gorm.DB, settings *ItemPlanSettings) error
}

// TransactionFilter 流水分页查询条件
type TransactionFilter struct {
	Limit          int
	Cursor         *TransactionCursor
	DateFrom       *time.Time
	DateTo         *time.Time
	ItemIDs        []int64
	Directions     []Direction
	Types          []TransactionType
	ChainID        *int64
	IncludeDeleted bool
	DeletedOnly    bool
}

// TransactionCursor 游标: 上一页最后一条的 (日期, id)
type TransactionCursor struct {
	Date time.Time
	ID   int64
}

type TransactionRepository interface {
	Create(ctx context.Context, db *gorm.DB, t *Transaction) error
	// Get 包含已软删除的记录
	Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Transaction, error)
	Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Transaction, error)
	Save(ctx context.Context, db *gorm.DB, t *Transaction) error
	SoftDelete(ctx context.Context, db *gorm.DB, t *Transaction) error

	// ListLinked 某资产自动生成的交易，按日期、id 倒序
	ListLinked(ctx context.Context, db *gorm.DB, ownerID, itemID int64, sources []TransactionSource) ([]Transaction, error)

	// SoftDeletePlannedByChains 删除链下的计划交易，keepRealized 时保留已实现的
	SoftDeletePlannedByChains(ctx context.Context, db *gorm.DB, ownerID int64, chainIDs []int64, keepRealized bool) (int64, error)

	Page(ctx context.Context, db *gorm.DB, ownerID int64, filter TransactionFilter) ([]Transaction, error)
}

type ChainRepository interface {
	Create(ctx context.Context, db *gorm.DB, c *TransactionChain) error
	Get(ctx context.Context, db *gorm.DB, ownerID, id int64) (*TransactionChain, error)
	Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*TransactionChain, error)
	SoftDelete(ctx context.Context, db *gorm.DB, c *TransactionChain) error
	ListAuto(ctx context.Context, db *gorm.DB, ownerID, itemID int64) ([]TransactionChain, error)
	List(ctx context.Context, db *gorm.DB, ownerID int64) ([]TransactionChain, error)
}

// ReferenceResolver 分类 / 交易对方等参考数据 (只读)
type ReferenceResolver interface {
	Category(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Category, error)
	CategoryByName(ctx context.Context, db *gorm.DB, ownerID int64, name string) (*Category, error)
	Counterparty(ctx context.Context, db *gorm.DB, ownerID, id int64) (*Counterparty, error)
}
