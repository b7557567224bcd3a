package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/adapter/repo"
	"github.com/finplan/backend/internal/ledger/domain"
)

func linked(env *testEnv, t *testing.T, itemID int64, source domain.TransactionSource) []domain.Transaction {
	t.Helper()
	var out []domain.Transaction
	for _, tx := range env.transactions(t, domain.TransactionFilter{ItemIDs: []int64{itemID}}) {
		if tx.Source == source {
			out = append(out, tx)
		}
	}
	return out
}

func TestCreateNewItemRecordsOpening(t *testing.T) {
	env := newTestEnv(t)
	acc := env.createItem(t, ItemInput{
		Kind:         domain.Asset,
		TypeCode:     domain.TypeBankAccount,
		Name:         "Savings box",
		CurrencyCode: "USD",
		InitialValue: 10000,
		OpenDate:     domain.Date(2024, time.January, 1),
	})

	if acc.HistoryStatus != domain.HistoryNew {
		t.Errorf("HistoryStatus = %s, want NEW", acc.HistoryStatus)
	}
	if acc.CurrentValue != 10000 {
		t.Errorf("CurrentValue = %d, want 10000", acc.CurrentValue)
	}

	opening := linked(env, t, acc.ID, domain.SourceOpening)
	if len(opening) != 1 {
		t.Fatalf("opening transactions = %d, want 1", len(opening))
	}
	o := opening[0]
	if o.Direction != domain.Income || o.Amount != 10000 || o.LinkedItemID == nil || *o.LinkedItemID != acc.ID {
		t.Errorf("opening = %+v", o)
	}
	if o.CategoryID == nil || *o.CategoryID != env.categoryID(t, env.names.OtherIncome) {
		t.Errorf("opening category = %v, want %q", o.CategoryID, env.names.OtherIncome)
	}
}

func TestCreateLiabilityOpeningIncreasesDebt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.createItem(t, ItemInput{
		Kind:         domain.Liability,
		TypeCode:     domain.TypePrivateLoan,
		Name:         "From a friend",
		CurrencyCode: "USD",
		InitialValue: 30000,
		OpenDate:     domain.Date(2024, time.January, 1),
	})
	if loan.CurrentValue != 30000 {
		t.Errorf("CurrentValue = %d, want 30000", loan.CurrentValue)
	}
	opening := linked(env, t, loan.ID, domain.SourceOpening)
	if len(opening) != 1 || opening[0].Direction != domain.Expense {
		t.Fatalf("opening = %+v, want one EXPENSE", opening)
	}

	// 重新生成开户交易：旧的冲回后负债只剩新金额
	in := ItemInput{
		Kind:         domain.Liability,
		TypeCode:     domain.TypePrivateLoan,
		Name:         "From a friend",
		CurrencyCode: "USD",
		InitialValue: 20000,
		OpenDate:     domain.Date(2024, time.January, 1),
	}
	if _, err := env.items.UpdateItem(ctx, testOwner, loan.ID, in); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if got := env.balance(t, loan.ID); got != 20000 {
		t.Errorf("balance after update = %d, want 20000", got)
	}

	// 核销负债：支出使余额归零
	closed, err := env.items.CloseItem(ctx, testOwner, loan.ID, CloseInput{WriteOff: true})
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	if closed.CurrentValue != 0 {
		t.Errorf("balance after write-off = %d, want 0", closed.CurrentValue)
	}
	writeOff := linked(env, t, loan.ID, domain.SourceClosing)
	if len(writeOff) != 1 || writeOff[0].Direction != domain.Expense {
		t.Errorf("write-off = %+v, want one EXPENSE", writeOff)
	}
}

func TestCreateDepositFundedFromAccount(t *testing.T) {
	env := newTestEnv(t)
	bank := env.account(t, "Checking", 100000)
	end := domain.Date(2024, time.July, 15)
	order := domain.PayoutMonthly
	first := domain.FirstPayoutMonthEnd

	deposit := env.createItem(t, ItemInput{
		Kind:                      domain.Asset,
		TypeCode:                  domain.TypeDeposit,
		Name:                      "6 months",
		CurrencyCode:              "USD",
		InitialValue:              50000,
		OpenDate:                  domain.Date(2024, time.January, 15),
		DepositEndDate:            &end,
		InterestRate:              decimal.NewNullDecimal(decimal.NewFromInt(10)),
		InterestPayoutOrder:       &order,
		InterestPayoutAccountID:   &bank.ID,
		OpeningCounterpartyItemID: &bank.ID,
		Plan:                      &domain.ItemPlanSettings{Enabled: true, FirstPayoutRule: &first},
	})

	if got := env.balance(t, bank.ID); got != 50000 {
		t.Errorf("bank balance = %d, want 50000", got)
	}
	if deposit.CurrentValue != 50000 {
		t.Errorf("deposit balance = %d, want 50000", deposit.CurrentValue)
	}

	closing := linked(env, t, deposit.ID, domain.SourceClosing)
	if len(closing) != 1 {
		t.Fatalf("closing transactions = %d, want 1", len(closing))
	}
	c := closing[0]
	if c.TransactionType != domain.Planned || !c.TransactionDate.Equal(end) || c.PrimaryItemID != deposit.ID {
		t.Errorf("closing = %+v, want planned transfer back on %s", c, end)
	}

	chains, err := env.chains.ListChains(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("ListChains() error = %v", err)
	}
	if len(chains) != 1 || chains[0].Purpose != domain.PurposeInterest || chains[0].Source != domain.ChainAuto {
		t.Fatalf("chains = %+v, want one auto interest chain", chains)
	}

	// 到期前关闭：余额转回账户，计划中的到期转账与利息链一并删除
	closed, err := env.items.CloseItem(context.Background(), testOwner, deposit.ID, CloseInput{TransferToItemID: &bank.ID})
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(domain.Date(2024, time.June, 30)) {
		t.Errorf("ClosedAt = %v, want clock date", closed.ClosedAt)
	}
	if closed.CurrentValue != 0 {
		t.Errorf("deposit balance after close = %d, want 0", closed.CurrentValue)
	}
	if got := env.balance(t, bank.ID); got != 100000 {
		t.Errorf("bank balance after close = %d, want 100000", got)
	}
	for _, tx := range linked(env, t, deposit.ID, domain.SourceClosing) {
		if tx.TransactionType == domain.Planned {
			t.Errorf("planned closing transfer %d survived close", tx.ID)
		}
	}
	chains, _ = env.chains.ListChains(context.Background(), testOwner)
	if len(chains) != 0 {
		t.Errorf("chains after close = %d, want 0", len(chains))
	}
}

func TestUpdateHistoricalInitialValueAdjustsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "Checking", 10000)
	if _, err := env.ledger.CreateTransaction(ctx, testOwner, expense(acc.ID, 2000, jan10)); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	in := ItemInput{
		Name:          "Checking",
		InitialValue:  15000,
		OpenDate:      acc.OpenDate,
		HistoryStatus: domain.HistoryHistorical,
	}
	updated, err := env.items.UpdateItem(ctx, testOwner, acc.ID, in)
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if updated.CurrentValue != 13000 {
		t.Errorf("CurrentValue = %d, want 13000", updated.CurrentValue)
	}

	in.Kind = domain.Liability
	_, err = env.items.UpdateItem(ctx, testOwner, acc.ID, in)
	wantReason(t, err, domain.ReasonInvalid)
}

func TestUpdateNewItemRegeneratesOpening(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := ItemInput{
		Kind:         domain.Asset,
		TypeCode:     domain.TypeBankAccount,
		Name:         "Wallet",
		CurrencyCode: "USD",
		InitialValue: 10000,
		OpenDate:     domain.Date(2024, time.January, 1),
	}
	acc := env.createItem(t, in)

	in.InitialValue = 12000
	updated, err := env.items.UpdateItem(ctx, testOwner, acc.ID, in)
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if updated.CurrentValue != 12000 {
		t.Errorf("CurrentValue = %d, want 12000", updated.CurrentValue)
	}
	opening := linked(env, t, acc.ID, domain.SourceOpening)
	if len(opening) != 1 || opening[0].Amount != 12000 {
		t.Errorf("opening = %+v, want a single 12000 opening", opening)
	}

	// 仅改名不重建开户交易
	in.Name = "Leather wallet"
	if _, err := env.items.UpdateItem(ctx, testOwner, acc.ID, in); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	again := linked(env, t, acc.ID, domain.SourceOpening)
	if len(again) != 1 || again[0].ID != opening[0].ID {
		t.Errorf("opening regenerated on rename")
	}
}

func TestCloseItemRequiresSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "Checking", 10000)
	other := env.account(t, "Other", 0)

	_, err := env.items.CloseItem(ctx, testOwner, acc.ID, CloseInput{})
	wantReason(t, err, domain.ReasonMissingField)

	_, err = env.items.CloseItem(ctx, testOwner, acc.ID, CloseInput{TransferToItemID: &other.ID, WriteOff: true})
	wantReason(t, err, domain.ReasonInvalid)

	early := domain.Date(2023, time.June, 1)
	_, err = env.items.CloseItem(ctx, testOwner, acc.ID, CloseInput{Date: &early, WriteOff: true})
	wantReason(t, err, domain.ReasonInvalidDate)

	closed, err := env.items.CloseItem(ctx, testOwner, acc.ID, CloseInput{WriteOff: true})
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	if closed.CurrentValue != 0 || closed.ClosedAt == nil {
		t.Errorf("closed = balance %d, closed_at %v", closed.CurrentValue, closed.ClosedAt)
	}
	writeOff := linked(env, t, acc.ID, domain.SourceClosing)
	if len(writeOff) != 1 || writeOff[0].Direction != domain.Expense {
		t.Fatalf("write-off = %+v, want one EXPENSE", writeOff)
	}

	_, err = env.ledger.CreateTransaction(ctx, testOwner, expense(acc.ID, 0, jan10))
	wantReason(t, err, domain.ReasonItemInactive)
	_, err = env.items.CloseItem(ctx, testOwner, acc.ID, CloseInput{WriteOff: true})
	wantReason(t, err, domain.ReasonItemInactive)
}

func TestMarketItemMovesLots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bank := env.account(t, "Broker cash", 10000)

	stock := env.createItem(t, ItemInput{
		Kind:                    domain.Asset,
		TypeCode:                "securities",
		Name:                    "ACME",
		CurrencyCode:            "USD",
		InstrumentID:            ptr("ACME"),
		LotSize:                 ptr(int64(1)),
		InitialValue:            150000,
		InitialLots:             ptr(int64(10)),
		OpenDate:                domain.Date(2024, time.January, 2),
		Commission:              ptr(int64(500)),
		CommissionPaymentItemID: &bank.ID,
	})

	if stock.Lots() != 10 {
		t.Errorf("lots = %d, want 10", stock.Lots())
	}
	if stock.CurrentValue != 0 {
		t.Errorf("CurrentValue = %d, want 0 for market items", stock.CurrentValue)
	}
	if got := env.balance(t, bank.ID); got != 9500 {
		t.Errorf("bank balance = %d, want 9500 after commission", got)
	}

	sell := expense(stock.ID, 0, jan10)
	sell.PrimaryQuantityLots = ptr(int64(11))
	_, err := env.ledger.CreateTransaction(ctx, testOwner, sell)
	wantReason(t, err, domain.ReasonInsufficientLots)

	_, err = env.items.CloseItem(ctx, testOwner, stock.ID, CloseInput{TransferToItemID: &bank.ID})
	wantReason(t, err, domain.ReasonInvalid)

	closed, err := env.items.CloseItem(ctx, testOwner, stock.ID, CloseInput{WriteOff: true})
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	if closed.Lots() != 0 {
		t.Errorf("lots after write-off = %d, want 0", closed.Lots())
	}
}

func TestCreateItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	credit := domain.CardCredit

	base := func() ItemInput {
		return ItemInput{
			Kind:         domain.Asset,
			TypeCode:     domain.TypeBankAccount,
			Name:         "Account",
			CurrencyCode: "USD",
			OpenDate:     domain.Date(2024, time.January, 1),
		}
	}
	tests := []struct {
		name   string
		mutate func(in *ItemInput)
		reason domain.Reason
	}{
		{"bad kind", func(in *ItemInput) { in.Kind = "EQUITY" }, domain.ReasonInvalid},
		{"no type", func(in *ItemInput) { in.TypeCode = "" }, domain.ReasonMissingField},
		{"no name", func(in *ItemInput) { in.Name = "  " }, domain.ReasonMissingField},
		{"bad currency", func(in *ItemInput) { in.CurrencyCode = "US" }, domain.ReasonInvalid},
		{"negative new", func(in *ItemInput) { in.InitialValue = -1 }, domain.ReasonInvalid},
		{"limit on account", func(in *ItemInput) { in.CreditLimit = ptr(int64(100)) }, domain.ReasonInvalid},
		{"below credit limit", func(in *ItemInput) {
			in.TypeCode, in.CardKind, in.CreditLimit = domain.TypeBankCard, &credit, ptr(int64(100))
			in.HistoryStatus, in.InitialValue = domain.HistoryHistorical, -101
		}, domain.ReasonInvalid},
		{"deposit ends before open", func(in *ItemInput) {
			in.TypeCode, in.DepositEndDate = domain.TypeDeposit, ptr(domain.Date(2023, time.January, 1))
		}, domain.ReasonInvalidDate},
		{"card account missing", func(in *ItemInput) {
			in.TypeCode, in.CardAccountID = domain.TypeBankCard, ptr(int64(9999))
		}, domain.ReasonInvalidReference},
		{"commission on account", func(in *ItemInput) { in.Commission = ptr(int64(10)) }, domain.ReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := env.items.CreateItem(ctx, testOwner, in)
			wantReason(t, err, tt.reason)
		})
	}

	items, err := env.items.ListItems(ctx, testOwner, true)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want none created by failed calls", len(items))
	}
}

func TestArchiveItemIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t, "Checking", 0)

	first, err := env.items.ArchiveItem(ctx, testOwner, acc.ID)
	if err != nil {
		t.Fatalf("ArchiveItem() error = %v", err)
	}
	second, err := env.items.ArchiveItem(ctx, testOwner, acc.ID)
	if err != nil {
		t.Fatalf("second ArchiveItem() error = %v", err)
	}
	if first.ArchivedAt == nil || second.ArchivedAt == nil || !first.ArchivedAt.Equal(*second.ArchivedAt) {
		t.Errorf("ArchivedAt = %v then %v, want unchanged", first.ArchivedAt, second.ArchivedAt)
	}

	visible, _ := env.items.ListItems(ctx, testOwner, false)
	if len(visible) != 0 {
		t.Errorf("ListItems(false) = %d, want archived item hidden", len(visible))
	}
}

// lockRecorder 记录加锁顺序：同一流程中后加的锁不得小于已持有的最大 id
type lockRecorder struct {
	domain.ItemRepository
	held       map[int64]bool
	violations []int64
}

func (r *lockRecorder) reset() {
	r.held = map[int64]bool{}
	r.violations = nil
}

func (r *lockRecorder) record(ids ...int64) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var maxHeld int64
	for id := range r.held {
		if id > maxHeld {
			maxHeld = id
		}
	}
	for _, id := range sorted {
		if !r.held[id] && id < maxHeld {
			r.violations = append(r.violations, id)
		}
		r.held[id] = true
		if id > maxHeld {
			maxHeld = id
		}
	}
}

func (r *lockRecorder) Lock(ctx context.Context, db *gorm.DB, ownerID, id int64) (*domain.Item, error) {
	r.record(id)
	return r.ItemRepository.Lock(ctx, db, ownerID, id)
}

func (r *lockRecorder) LockMany(ctx context.Context, db *gorm.DB, ownerID int64, ids []int64) (map[int64]*domain.Item, error) {
	r.record(ids...)
	return r.ItemRepository.LockMany(ctx, db, ownerID, ids)
}

func TestUpdateAndCloseLockInAscendingOrder(t *testing.T) {
	recorder := &lockRecorder{ItemRepository: repo.NewItemRepo()}
	recorder.reset()
	env := newTestEnvWith(t, recorder)
	ctx := context.Background()
	bank := env.account(t, "Checking", 100000)
	end := domain.Date(2024, time.July, 15)

	// 存款 id 大于账户 id；开户与关闭都会向账户记账
	in := ItemInput{
		Kind:                      domain.Asset,
		TypeCode:                  domain.TypeDeposit,
		Name:                      "Term deposit",
		CurrencyCode:              "USD",
		InitialValue:              50000,
		OpenDate:                  domain.Date(2024, time.January, 15),
		DepositEndDate:            &end,
		InterestRate:              decimal.NewNullDecimal(decimal.NewFromInt(5)),
		OpeningCounterpartyItemID: &bank.ID,
	}
	deposit := env.createItem(t, in)
	if deposit.ID <= bank.ID {
		t.Fatalf("deposit id %d must be above bank id %d", deposit.ID, bank.ID)
	}

	recorder.reset()
	in.InitialValue = 60000
	updated, err := env.items.UpdateItem(ctx, testOwner, deposit.ID, in)
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if len(recorder.violations) != 0 {
		t.Errorf("UpdateItem locked %v after a higher id", recorder.violations)
	}
	if updated.CurrentValue != 60000 {
		t.Errorf("deposit balance = %d, want 60000", updated.CurrentValue)
	}
	if got := env.balance(t, bank.ID); got != 40000 {
		t.Errorf("bank balance after update = %d, want 40000", got)
	}

	recorder.reset()
	closed, err := env.items.CloseItem(ctx, testOwner, deposit.ID, CloseInput{TransferToItemID: &bank.ID})
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	if len(recorder.violations) != 0 {
		t.Errorf("CloseItem locked %v after a higher id", recorder.violations)
	}
	if closed.CurrentValue != 0 {
		t.Errorf("deposit balance after close = %d, want 0", closed.CurrentValue)
	}
	if got := env.balance(t, bank.ID); got != 100000 {
		t.Errorf("bank balance after close = %d, want 100000", got)
	}
}
