package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/adapter/repo"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/platform/database"
)

const testOwner int64 = 7

// testEnv 每个测试一个独立的内存库
type testEnv struct {
	db     *gorm.DB
	ledger *LedgerService
	chains *ChainService
	plans  *PlanService
	items  *ItemService
	names  CategoryNames
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, repo.NewItemRepo())
}

// newTestEnvWith 使用指定的资产仓储，便于包装观察
func newTestEnvWith(t *testing.T, itemRepo domain.ItemRepository) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLiteDB("file:"+name+"?mode=memory&cache=shared", database.Options{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	names := DefaultCategoryNames()
	var seeds []database.SeedCategory
	for n, scope := range names.Scopes() {
		seeds = append(seeds, database.SeedCategory{Name: n, Scope: scope})
	}
	if err := database.SeedCategories(db, seeds); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	logger := zap.NewNop()
	settingsRepo := repo.NewPlanSettingsRepo()
	txRepo := repo.NewTransactionRepo()
	chainRepo := repo.NewChainRepo()
	refRepo := repo.NewReferenceRepo()

	ledger := NewLedgerService(db, itemRepo, txRepo, refRepo, logger)
	chains := NewChainService(db, chainRepo, txRepo, ledger, logger)
	plans := NewPlanService(db, itemRepo, settingsRepo, refRepo, chains, ledger, names, logger)
	clock := domain.FixedClock{Day: domain.Date(2024, time.June, 30)}
	items := NewItemService(db, itemRepo, settingsRepo, txRepo, refRepo, ledger, chains, plans, clock, names, logger)

	return &testEnv{db: db, ledger: ledger, chains: chains, plans: plans, items: items, names: names}
}

func ptr[T any](v T) *T {
	return &v
}

// account 创建一个 HISTORICAL 银行账户，余额直接为 balance
func (e *testEnv) account(t *testing.T, name string, balance int64) *domain.Item {
	t.Helper()
	return e.createItem(t, ItemInput{
		Kind:          domain.Asset,
		TypeCode:      domain.TypeBankAccount,
		Name:          name,
		CurrencyCode:  "USD",
		InitialValue:  balance,
		OpenDate:      domain.Date(2024, time.January, 1),
		HistoryStatus: domain.HistoryHistorical,
	})
}

func (e *testEnv) creditCard(t *testing.T, name string, limit int64) *domain.Item {
	t.Helper()
	credit := domain.CardCredit
	return e.createItem(t, ItemInput{
		Kind:          domain.Asset,
		TypeCode:      domain.TypeBankCard,
		Name:          name,
		CurrencyCode:  "USD",
		CardKind:      &credit,
		CreditLimit:   &limit,
		OpenDate:      domain.Date(2024, time.January, 1),
		HistoryStatus: domain.HistoryHistorical,
	})
}

func (e *testEnv) createItem(t *testing.T, in ItemInput) *domain.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), testOwner, in)
	if err != nil {
		t.Fatalf("CreateItem(%s) error = %v", in.Name, err)
	}
	return item
}

// balance 从库中重新读取余额
func (e *testEnv) balance(t *testing.T, itemID int64) int64 {
	t.Helper()
	item, err := e.items.GetItem(context.Background(), testOwner, itemID)
	if err != nil {
		t.Fatalf("GetItem(%d) error = %v", itemID, err)
	}
	return item.CurrentValue
}

func (e *testEnv) categoryID(t *testing.T, name string) int64 {
	t.Helper()
	var c domain.Category
	if err := e.db.Where("name = ?", name).First(&c).Error; err != nil {
		t.Fatalf("category %q: %v", name, err)
	}
	return c.ID
}

// transactions 按条件取第一页
func (e *testEnv) transactions(t *testing.T, filter domain.TransactionFilter) []domain.Transaction {
	t.Helper()
	filter.Limit = maxPageSize
	page, err := e.ledger.ListTransactions(context.Background(), testOwner, filter)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	return page.Items
}

func expense(itemID, amount int64, date time.Time) TransactionInput {
	return TransactionInput{
		TransactionDate: date,
		Direction:       domain.Expense,
		PrimaryItemID:   itemID,
		Amount:          amount,
	}
}

func transfer(from, to, amount int64, date time.Time) TransactionInput {
	return TransactionInput{
		TransactionDate:    date,
		Direction:          domain.Transfer,
		PrimaryItemID:      from,
		CounterpartyItemID: &to,
		Amount:             amount,
	}
}

func wantReason(t *testing.T, err error, reason domain.Reason) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want reason %s", reason)
	}
	if got := domain.ReasonOf(err); got != reason {
		t.Fatalf("reason = %q (%v), want %q", got, err, reason)
	}
}
