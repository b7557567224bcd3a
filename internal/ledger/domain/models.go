package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item 资产/负债实体
// 对应数据库表: items
type Item struct {
	ID           int64    `gorm:"primaryKey;autoIncrement"`
	OwnerID      int64    `gorm:"index;not null"`
	Kind         ItemKind `gorm:"type:varchar(16);not null"`
	TypeCode     string   `gorm:"type:varchar(64);not null"`
	Name         string   `gorm:"type:varchar(200);not null"`
	CurrencyCode string   `gorm:"type:char(3);not null"`

	// 银行卡
	CardKind      *CardKind `gorm:"type:varchar(16)"`
	CreditLimit   *int64
	CardAccountID *int64 `gorm:"index"`

	// 证券持仓
	InstrumentID *string `gorm:"type:varchar(64)"`
	PositionLots *int64
	LotSize      *int64

	// 存款 / 贷款利率
	InterestRate            decimal.NullDecimal  `gorm:"type:decimal(9,4)"`
	InterestPayoutOrder     *InterestPayoutOrder `gorm:"type:varchar(16)"`
	InterestCapitalization  bool                 `gorm:"not null;default:false"`
	InterestPayoutAccountID *int64
	DepositEndDate          *time.Time `gorm:"type:date"`

	InitialValue              int64         `gorm:"not null;default:0"`
	InitialLots               *int64        // 证券初始手数
	CurrentValue              int64         `gorm:"not null;default:0"` // 只能由 LedgerService 修改
	OpenDate                  time.Time     `gorm:"type:date;not null"`
	HistoryStatus             HistoryStatus `gorm:"type:varchar(16);not null"`
	OpeningCounterpartyItemID *int64

	ClosedAt   *time.Time
	ArchivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Item) TableName() string {
	return "items"
}

// IsMarket 证券类按手数记账
func (i *Item) IsMarket() bool {
	return i.InstrumentID != nil && *i.InstrumentID != ""
}

func (i *Item) IsActive() bool {
	return i.ClosedAt == nil && i.ArchivedAt == nil
}

// MinimumBalance 余额下限：信用卡为 -额度，其余为 0
func (i *Item) MinimumBalance() int64 {
	if i.TypeCode == TypeBankCard && i.CardKind != nil && *i.CardKind == CardCredit && i.CreditLimit != nil {
		return -*i.CreditLimit
	}
	return 0
}

func (i *Item) Lots() int64 {
	if i.PositionLots == nil {
		return 0
	}
	return *i.PositionLots
}

// ItemPlanSettings 计划设置 (与 Item 一对一)
type ItemPlanSettings struct {
	ID                    int64            `gorm:"primaryKey;autoIncrement"`
	ItemID                int64            `gorm:"uniqueIndex;not null"`
	Enabled               bool             `gorm:"not null;default:false"`
	FirstPayoutRule       *FirstPayoutRule `gorm:"type:varchar(32)"`
	PlanEndDate           *time.Time       `gorm:"type:date"`
	LoanEndDate           *time.Time       `gorm:"type:date"`
	RepaymentFrequency    *Frequency       `gorm:"type:varchar(16)"`
	RepaymentWeeklyDay    *int             // 0=周一 ... 6=周日
	RepaymentMonthlyDay   *int             // 1..31
	RepaymentMonthlyRule  *MonthlyRule     `gorm:"type:varchar(16)"`
	RepaymentIntervalDays *int             // >= 1
	RepaymentAccountID    *int64
	RepaymentType         *RepaymentType     `gorm:"type:varchar(16)"`
	PaymentAmountKind     *PaymentAmountKind `gorm:"type:varchar(16)"`
	PaymentAmount         *int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (ItemPlanSettings) TableName() string {
	return "item_plan_settings"
}

// TransactionChain 周期交易链
type TransactionChain struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement"`
	OwnerID                int64     `gorm:"index;not null"`
	Name                   string    `gorm:"type:varchar(200);not null"`
	StartDate              time.Time `gorm:"type:date;not null"`
	EndDate                time.Time `gorm:"type:date;not null"`
	Frequency              Frequency `gorm:"type:varchar(16);not null"`
	WeeklyDay              *int
	MonthlyDay             *int
	MonthlyRule            *MonthlyRule `gorm:"type:varchar(16)"`
	IntervalDays           *int
	Direction              Direction `gorm:"type:varchar(16);not null"`
	PrimaryItemID          int64     `gorm:"not null"`
	PrimaryCardItemID      *int64
	CounterpartyItemID     *int64
	CounterpartyCardItemID *int64
	Amount                 int64 `gorm:"not null"`
	AmountCounterparty     *int64
	AmountIsVariable       bool `gorm:"not null;default:false"`
	AmountMin              *int64
	AmountMax              *int64
	Source                 ChainSource  `gorm:"type:varchar(16);not null"`
	Purpose                ChainPurpose `gorm:"type:varchar(16);not null;default:''"`
	LinkedItemID           *int64       `gorm:"index"`
	CategoryID             *int64
	CounterpartyID         *int64
	Description            *string `gorm:"type:text"`
	Comment                *string `gorm:"type:text"`
	CreatedAt              time.Time
	DeletedAt              gorm.DeletedAt `gorm:"index"`
}

func (TransactionChain) TableName() string {
	return "transaction_chains"
}

// Transaction 交易
// 只有 ACTUAL 影响余额；从不物理删除
type Transaction struct {
	ID                       int64     `gorm:"primaryKey;autoIncrement"`
	OwnerID                  int64     `gorm:"index;not null"`
	TransactionDate          time.Time `gorm:"type:date;index;not null"`
	Direction                Direction `gorm:"type:varchar(16);not null"`
	PrimaryItemID            int64     `gorm:"index;not null"`
	PrimaryCardItemID        *int64
	CounterpartyItemID       *int64 `gorm:"index"`
	CounterpartyCardItemID   *int64
	Amount                   int64 `gorm:"not null"`
	AmountCounterparty       *int64
	PrimaryQuantityLots      *int64
	CounterpartyQuantityLots *int64
	TransactionType          TransactionType   `gorm:"type:varchar(16);not null"`
	Status                   TransactionStatus `gorm:"type:varchar(16);not null"`
	ChainID                  *int64            `gorm:"index"`
	LinkedItemID             *int64            `gorm:"index"`
	Source                   TransactionSource `gorm:"type:varchar(32);not null"`
	CategoryID               *int64
	CounterpartyID           *int64
	Description              *string `gorm:"type:text"`
	Comment                  *string `gorm:"type:text"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
	DeletedAt                gorm.DeletedAt `gorm:"index"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// CounterAmount 转账对方金额（未指定时与 Amount 相同）
func (t *Transaction) CounterAmount() int64 {
	if t.AmountCounterparty != nil {
		return *t.AmountCounterparty
	}
	return t.Amount
}

// Category 收支分类 (OwnerID 为空表示全局)
type Category struct {
	ID         int64         `gorm:"primaryKey;autoIncrement"`
	OwnerID    *int64        `gorm:"index"`
	Name       string        `gorm:"type:varchar(100);not null"`
	Scope      CategoryScope `gorm:"type:varchar(16);not null"`
	ArchivedAt *time.Time
	CreatedAt  time.Time
}

func (Category) TableName() string {
	return "categories"
}

// CategoryState 用户对全局分类的启用状态
type CategoryState struct {
	OwnerID    int64 `gorm:"primaryKey"`
	CategoryID int64 `gorm:"primaryKey"`
	Enabled    bool  `gorm:"not null"`
}

func (CategoryState) TableName() string {
	return "category_states"
}

// Counterparty 交易对方 (银行、商户、个人)
type Counterparty struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID   *int64 `gorm:"index"`
	Name      string `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Counterparty) TableName() string {
	return "counterparties"
}
