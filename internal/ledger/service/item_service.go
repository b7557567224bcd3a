package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/domain"
)

// ItemInput 创建 / 修改资产
type ItemInput struct {
	Kind         domain.ItemKind
	TypeCode     string
	Name         string
	CurrencyCode string

	CardKind      *domain.CardKind
	CreditLimit   *int64
	CardAccountID *int64

	InstrumentID *string
	LotSize      *int64

	InterestRate            decimal.NullDecimal
	InterestPayoutOrder     *domain.InterestPayoutOrder
	InterestCapitalization  bool
	InterestPayoutAccountID *int64
	DepositEndDate          *time.Time

	InitialValue              int64
	InitialLots               *int64
	OpenDate                  time.Time
	HistoryStatus             domain.HistoryStatus
	OpeningCounterpartyItemID *int64

	// 证券买入佣金，仅创建时使用
	Commission              *int64
	CommissionPaymentItemID *int64

	// nil 表示不修改计划设置
	Plan *domain.ItemPlanSettings
}

// CloseInput 关闭资产；余额不为零时必须二选一: 转出或核销
type CloseInput struct {
	Date             *time.Time
	TransferToItemID *int64
	WriteOff         bool
	Comment          *string
}

type ItemService struct {
	db       *gorm.DB
	items    domain.ItemRepository
	settings domain.PlanSettingsRepository
	txs      domain.TransactionRepository
	refs     domain.ReferenceResolver
	ledger   *LedgerService
	chains   *ChainService
	plans    *PlanService
	clock    domain.Clock
	names    CategoryNames
	logger   *zap.Logger
}

func NewItemService(
	db *gorm.DB,
	items domain.ItemRepository,
	settings domain.PlanSettingsRepository,
	txs domain.TransactionRepository,
	refs domain.ReferenceResolver,
	ledger *LedgerService,
	chains *ChainService,
	plans *PlanService,
	clock domain.Clock,
	names CategoryNames,
	logger *zap.Logger,
) *ItemService {
	return &ItemService{
		db:       db,
		items:    items,
		settings: settings,
		txs:      txs,
		refs:     refs,
		ledger:   ledger,
		chains:   chains,
		plans:    plans,
		clock:    clock,
		names:    names.WithDefaults(),
		logger:   logger,
	}
}

// CreateItem 创建资产
// NEW: 余额由开户交易产生；HISTORICAL: 直接以初始值入账
func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, in ItemInput) (result *domain.Item, err error) {
	ctx, done := track(ctx, "create_item", ownerID)
	defer func() { done(err) }()

	if !in.Kind.IsValid() {
		return nil, domain.Invalid("kind", "unsupported kind %q", in.Kind)
	}
	if in.TypeCode == "" {
		return nil, domain.MissingField("type_code")
	}
	if in.HistoryStatus == "" {
		in.HistoryStatus = domain.HistoryNew
	}

	item := &domain.Item{
		OwnerID:      ownerID,
		Kind:         in.Kind,
		TypeCode:     in.TypeCode,
		CurrencyCode: strings.ToUpper(in.CurrencyCode),
	}
	applyItemInput(item, in)
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if item.HistoryStatus == domain.HistoryHistorical {
		item.CurrentValue = item.InitialValue
		item.PositionLots = item.InitialLots
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkCardAccount(ctx, tx, item); err != nil {
			return err
		}
		if err := s.items.Create(ctx, tx, item); err != nil {
			return err
		}

		var settings *domain.ItemPlanSettings
		if in.Plan != nil {
			var err error
			if settings, err = s.plans.saveSettings(ctx, tx, item, nil, in.Plan); err != nil {
				return err
			}
		}

		if item.HistoryStatus == domain.HistoryNew {
			if err := s.createOpening(ctx, tx, item, settings); err != nil {
				return err
			}
		}
		if err := s.createCommission(ctx, tx, item, in); err != nil {
			return err
		}
		if _, err := s.plans.Sync(ctx, tx, item, settings, ""); err != nil {
			return err
		}

		fresh, err := s.items.Get(ctx, tx, ownerID, item.ID)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("item_id", result.ID),
		zap.String("type_code", result.TypeCode),
		zap.String("history_status", string(result.HistoryStatus)),
	)
	return result, nil
}

// UpdateItem 修改资产；kind / type_code / currency_code 不可变
// 开户相关字段变化时重新生成开户交易，计划签名变化时重建计划
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, id int64, in ItemInput) (result *domain.Item, err error) {
	ctx, done := track(ctx, "update_item", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.lockItems(ctx, tx, ownerID, id, in.OpeningCounterpartyItemID)
		if err != nil {
			return err
		}
		if !item.IsActive() {
			return domain.Validation(domain.ReasonItemInactive, "", "item %q is closed or archived", item.Name)
		}
		if in.Kind != "" && in.Kind != item.Kind {
			return domain.Invalid("kind", "cannot be changed")
		}
		if in.TypeCode != "" && in.TypeCode != item.TypeCode {
			return domain.Invalid("type_code", "cannot be changed")
		}
		if in.CurrencyCode != "" && !strings.EqualFold(in.CurrencyCode, item.CurrencyCode) {
			return domain.Invalid("currency_code", "cannot be changed")
		}

		settings, err := s.settings.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		prevPlan := domain.PlanSignature(item, settings)
		prevOpening := domain.OpeningSignature(item, settings)
		oldValue, oldLots := historicalBalance(item)

		if in.HistoryStatus == "" {
			in.HistoryStatus = item.HistoryStatus
		}
		applyItemInput(item, in)
		if err := validateItem(item); err != nil {
			return err
		}
		if err := s.checkCardAccount(ctx, tx, item); err != nil {
			return err
		}
		if err := s.items.Save(ctx, tx, item); err != nil {
			return err
		}
		if in.Plan != nil {
			if settings, err = s.plans.saveSettings(ctx, tx, item, settings, in.Plan); err != nil {
				return err
			}
		}

		if domain.OpeningSignature(item, settings) != prevOpening {
			if err := s.deleteOpening(ctx, tx, item); err != nil {
				return err
			}
			newValue, newLots := historicalBalance(item)
			if err := s.ledger.AdjustBalance(ctx, tx, ownerID, id, newValue-oldValue, newLots-oldLots); err != nil {
				return err
			}
			if item.HistoryStatus == domain.HistoryNew {
				if err := s.createOpening(ctx, tx, item, settings); err != nil {
					return err
				}
			}
		}

		if _, err := s.plans.Sync(ctx, tx, item, settings, prevPlan); err != nil {
			return err
		}

		fresh, err := s.items.Get(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item updated", zap.Int64("owner_id", ownerID), zap.Int64("item_id", id))
	return result, nil
}

// CloseItem 关闭资产
func (s *ItemService) CloseItem(ctx context.Context, ownerID, id int64, in CloseInput) (result *domain.Item, err error) {
	ctx, done := track(ctx, "close_item", ownerID)
	defer func() { done(err) }()

	date := s.clock.Today()
	if in.Date != nil {
		date = domain.TruncateDay(*in.Date)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.lockItems(ctx, tx, ownerID, id, in.TransferToItemID)
		if err != nil {
			return err
		}
		if !item.IsActive() {
			return domain.Validation(domain.ReasonItemInactive, "", "item %q is already closed or archived", item.Name)
		}
		if date.Before(item.OpenDate) {
			return domain.Validation(domain.ReasonInvalidDate, "date", "close date is before the open date")
		}

		if err := s.settleBalance(ctx, tx, item, date, in); err != nil {
			return err
		}

		// 计划中的到期转账不再需要
		closing, err := s.txs.ListLinked(ctx, tx, ownerID, id, []domain.TransactionSource{domain.SourceClosing})
		if err != nil {
			return err
		}
		for i := range closing {
			if closing[i].TransactionType != domain.Planned {
				continue
			}
			if err := s.ledger.SoftDelete(ctx, tx, ownerID, &closing[i]); err != nil {
				return err
			}
		}
		if _, err := s.chains.deleteAutoChains(ctx, tx, ownerID, id); err != nil {
			return err
		}

		item.ClosedAt = &date
		if err := s.items.Save(ctx, tx, item); err != nil {
			return err
		}
		fresh, err := s.items.Get(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item closed",
		zap.Int64("owner_id", ownerID),
		zap.Int64("item_id", id),
		zap.String("date", date.Format(domain.DateLayout)),
	)
	return result, nil
}

// ArchiveItem 归档；历史交易保留，自动链删除
func (s *ItemService) ArchiveItem(ctx context.Context, ownerID, id int64) (result *domain.Item, err error) {
	ctx, done := track(ctx, "archive_item", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.items.Lock(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if item.ArchivedAt != nil {
			result = item
			return nil
		}
		if _, err := s.chains.deleteAutoChains(ctx, tx, ownerID, id); err != nil {
			return err
		}
		now := time.Now().UTC()
		item.ArchivedAt = &now
		if err := s.items.Save(ctx, tx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item archived", zap.Int64("owner_id", ownerID), zap.Int64("item_id", id))
	return result, nil
}

func (s *ItemService) GetItem(ctx context.Context, ownerID, id int64) (*domain.Item, error) {
	return s.items.Get(ctx, s.db, ownerID, id)
}

func (s *ItemService) ListItems(ctx context.Context, ownerID int64, includeArchived bool) ([]domain.Item, error) {
	return s.items.List(ctx, s.db, ownerID, includeArchived)
}

// ---------------------------------------------------------

// lockItems 在流程开始时一次性按 id 升序锁定可能记账的全部资产：
// 资产本身、开户对方资产、related 中的资产，以及银行卡关联的账户
// 返回资产本身；related 中无效的引用留给后续校验报告
func (s *ItemService) lockItems(ctx context.Context, tx *gorm.DB, ownerID, id int64, related ...*int64) (*domain.Item, error) {
	item, err := s.items.Get(ctx, tx, ownerID, id)
	if err != nil {
		return nil, err
	}
	ids := []int64{id}
	if item.CardAccountID != nil {
		ids = append(ids, *item.CardAccountID)
	}
	for _, ref := range append(related, item.OpeningCounterpartyItemID) {
		if ref == nil || *ref == id {
			continue
		}
		other, err := s.items.Get(ctx, tx, ownerID, *ref)
		if err != nil {
			continue
		}
		ids = append(ids, other.ID)
		if other.CardAccountID != nil {
			ids = append(ids, *other.CardAccountID)
		}
	}

	locked, err := s.items.LockMany(ctx, tx, ownerID, ids)
	if err != nil {
		return nil, err
	}
	return locked[id], nil
}

func (s *ItemService) checkCardAccount(ctx context.Context, tx *gorm.DB, item *domain.Item) error {
	if item.CardAccountID == nil {
		return nil
	}
	if item.TypeCode != domain.TypeBankCard {
		return domain.Invalid("card_account_id", "only bank cards can be linked to an account")
	}
	account, err := s.items.Get(ctx, tx, item.OwnerID, *item.CardAccountID)
	if err != nil {
		return domain.Validation(domain.ReasonInvalidReference, "card_account_id", "card account %d not found", *item.CardAccountID)
	}
	return CheckCardAccount(item, account)
}

// createOpening 开户交易：有对方资产时为转账 (并计划到期转回)，否则记为其他收入 / 支出
func (s *ItemService) createOpening(ctx context.Context, tx *gorm.DB, item *domain.Item, settings *domain.ItemPlanSettings) error {
	market := item.IsMarket()
	if market {
		if item.InitialLots == nil || *item.InitialLots <= 0 {
			return nil
		}
	} else if item.InitialValue <= 0 {
		return nil
	}

	itemID := item.ID
	var lots *int64
	if market {
		lots = item.InitialLots
	}

	if item.OpeningCounterpartyItemID != nil {
		counterID := *item.OpeningCounterpartyItemID
		opening := TransactionInput{
			TransactionDate: item.OpenDate,
			Direction:       domain.Transfer,
			Amount:          item.InitialValue,
			Comment:         itemComment("Opening", item),
		}
		if item.Kind == domain.Asset {
			opening.PrimaryItemID, opening.CounterpartyItemID = counterID, &itemID
			opening.CounterpartyQuantityLots = lots
		} else {
			opening.PrimaryItemID, opening.CounterpartyItemID = itemID, &counterID
			opening.PrimaryQuantityLots = lots
		}
		if err := s.recordLinked(ctx, tx, item, opening, domain.SourceOpening); err != nil {
			return err
		}

		closeDate := closingDate(item, settings)
		if closeDate == nil {
			return nil
		}
		back := TransactionInput{
			TransactionDate:          *closeDate,
			Direction:                domain.Transfer,
			TransactionType:          domain.Planned,
			PrimaryItemID:            *opening.CounterpartyItemID,
			CounterpartyItemID:       &opening.PrimaryItemID,
			Amount:                   item.InitialValue,
			PrimaryQuantityLots:      opening.CounterpartyQuantityLots,
			CounterpartyQuantityLots: opening.PrimaryQuantityLots,
			Comment:                  itemComment("Closing", item),
		}
		return s.recordLinked(ctx, tx, item, back, domain.SourceClosing)
	}

	// 负债开户记为其他支出，记账时按 OpeningDelta 增加负债
	direction, categoryName := domain.Income, s.names.OtherIncome
	if item.Kind == domain.Liability {
		direction, categoryName = domain.Expense, s.names.OtherExpense
	}
	category, err := s.refs.CategoryByName(ctx, tx, item.OwnerID, categoryName)
	if err != nil {
		return err
	}
	return s.recordLinked(ctx, tx, item, TransactionInput{
		TransactionDate:     item.OpenDate,
		Direction:           direction,
		PrimaryItemID:       itemID,
		Amount:              item.InitialValue,
		PrimaryQuantityLots: lots,
		CategoryID:          &category.ID,
		Comment:             itemComment("Opening", item),
	}, domain.SourceOpening)
}

// deleteOpening 冲回开户 / 到期交易，按日期倒序
func (s *ItemService) deleteOpening(ctx context.Context, tx *gorm.DB, item *domain.Item) error {
	linked, err := s.txs.ListLinked(ctx, tx, item.OwnerID, item.ID,
		[]domain.TransactionSource{domain.SourceOpening, domain.SourceClosing})
	if err != nil {
		return err
	}
	for i := range linked {
		if err := s.ledger.SoftDelete(ctx, tx, item.OwnerID, &linked[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ItemService) createCommission(ctx context.Context, tx *gorm.DB, item *domain.Item, in ItemInput) error {
	if in.Commission == nil || *in.Commission <= 0 {
		return nil
	}
	if !item.IsMarket() {
		return domain.Invalid("commission", "only allowed for market instruments")
	}
	if in.CommissionPaymentItemID == nil {
		return domain.MissingField("commission_payment_item_id")
	}
	category, err := s.refs.CategoryByName(ctx, tx, item.OwnerID, s.names.Commission)
	if err != nil {
		return err
	}
	comment := "Purchase commission: " + item.Name
	return s.recordLinked(ctx, tx, item, TransactionInput{
		TransactionDate: item.OpenDate,
		Direction:       domain.Expense,
		PrimaryItemID:   *in.CommissionPaymentItemID,
		Amount:          *in.Commission,
		CategoryID:      &category.ID,
		Comment:         &comment,
	}, domain.SourceCommission)
}

// settleBalance 关闭前把余额转出或核销到零
func (s *ItemService) settleBalance(ctx context.Context, tx *gorm.DB, item *domain.Item, date time.Time, in CloseInput) error {
	market := item.IsMarket()
	balance := item.CurrentValue
	if market {
		balance = item.Lots()
	}
	if balance == 0 {
		return nil
	}
	if in.TransferToItemID != nil && in.WriteOff {
		return domain.Invalid("write_off", "choose either a transfer target or a write-off")
	}

	amount := balance
	if amount < 0 {
		amount = -amount
	}
	itemID := item.ID
	comment := in.Comment
	if comment == nil {
		comment = itemComment("Closing", item)
	}

	switch {
	case in.TransferToItemID != nil:
		if market {
			return domain.Invalid("transfer_item_id", "market positions can only be written off")
		}
		// 余额为正的资产 (或为负的负债) 作为转出方
		t := TransactionInput{
			TransactionDate: date,
			Direction:       domain.Transfer,
			Amount:          amount,
			Comment:         comment,
		}
		if (item.Kind == domain.Asset) == (balance > 0) {
			t.PrimaryItemID, t.CounterpartyItemID = itemID, in.TransferToItemID
		} else {
			t.PrimaryItemID, t.CounterpartyItemID = *in.TransferToItemID, &itemID
		}
		return s.recordLinked(ctx, tx, item, t, domain.SourceClosing)

	case in.WriteOff:
		// 收入 / 支出不区分资产类型：正余额以支出核销，负余额以收入补平
		direction, categoryName := domain.Income, s.names.OtherIncome
		if balance > 0 {
			direction, categoryName = domain.Expense, s.names.OtherExpense
		}
		category, err := s.refs.CategoryByName(ctx, tx, item.OwnerID, categoryName)
		if err != nil {
			return err
		}
		t := TransactionInput{
			TransactionDate: date,
			Direction:       direction,
			PrimaryItemID:   itemID,
			Amount:          amount,
			CategoryID:      &category.ID,
			Comment:         comment,
		}
		if market {
			t.Amount = 0
			t.PrimaryQuantityLots = &amount
		}
		return s.recordLinked(ctx, tx, item, t, domain.SourceClosing)
	}
	return domain.Validation(domain.ReasonMissingField, "transfer_item_id",
		"balance %s must be transferred or written off", domain.FormatAmount(item.CurrentValue, item.CurrencyCode))
}

func (s *ItemService) recordLinked(ctx context.Context, tx *gorm.DB, item *domain.Item, in TransactionInput, source domain.TransactionSource) error {
	t, err := s.ledger.Build(ctx, tx, item.OwnerID, in)
	if err != nil {
		return err
	}
	itemID := item.ID
	t.Source = source
	t.LinkedItemID = &itemID
	return s.ledger.Record(ctx, tx, t)
}

func applyItemInput(item *domain.Item, in ItemInput) {
	item.Name = strings.TrimSpace(in.Name)
	item.CardKind = in.CardKind
	item.CreditLimit = in.CreditLimit
	item.CardAccountID = in.CardAccountID
	item.InstrumentID = in.InstrumentID
	item.LotSize = in.LotSize
	item.InterestRate = in.InterestRate
	item.InterestPayoutOrder = in.InterestPayoutOrder
	item.InterestCapitalization = in.InterestCapitalization
	item.InterestPayoutAccountID = in.InterestPayoutAccountID
	item.InitialValue = in.InitialValue
	item.InitialLots = in.InitialLots
	item.OpenDate = domain.TruncateDay(in.OpenDate)
	item.HistoryStatus = in.HistoryStatus
	item.OpeningCounterpartyItemID = in.OpeningCounterpartyItemID
	item.DepositEndDate = nil
	if in.DepositEndDate != nil {
		end := domain.TruncateDay(*in.DepositEndDate)
		item.DepositEndDate = &end
	}
}

func validateItem(item *domain.Item) error {
	if item.Name == "" {
		return domain.MissingField("name")
	}
	if len(item.CurrencyCode) != 3 {
		return domain.Invalid("currency_code", "must be a 3-letter ISO code")
	}
	if item.OpenDate.IsZero() {
		return domain.MissingField("open_date")
	}
	if !item.HistoryStatus.IsValid() {
		return domain.Invalid("history_status", "unsupported history status %q", item.HistoryStatus)
	}
	if item.CreditLimit != nil {
		if item.TypeCode != domain.TypeBankCard || item.CardKind == nil || *item.CardKind != domain.CardCredit {
			return domain.Invalid("credit_limit", "only allowed for credit cards")
		}
		if *item.CreditLimit < 0 {
			return domain.Invalid("credit_limit", "must not be negative")
		}
	}
	if item.HistoryStatus == domain.HistoryNew && item.InitialValue < 0 {
		return domain.Invalid("initial_value", "must not be negative")
	}
	if item.InitialValue < item.MinimumBalance() {
		return domain.Invalid("initial_value", "must not be below %s", domain.FormatAmount(item.MinimumBalance(), item.CurrencyCode))
	}
	if item.InitialLots != nil && *item.InitialLots < 0 {
		return domain.Invalid("initial_lots", "must not be negative")
	}
	if item.InterestRate.Valid && item.InterestRate.Decimal.IsNegative() {
		return domain.Invalid("interest_rate", "must not be negative")
	}
	if item.DepositEndDate != nil && item.DepositEndDate.Before(item.OpenDate) {
		return domain.Validation(domain.ReasonInvalidDate, "deposit_end_date", "must not be before the open date")
	}
	if item.OpeningCounterpartyItemID != nil && item.ID != 0 && *item.OpeningCounterpartyItemID == item.ID {
		return domain.Validation(domain.ReasonSameItem, "opening_counterparty_item_id", "item cannot fund itself")
	}
	return nil
}

// historicalBalance HISTORICAL 资产直接计入余额的部分
func historicalBalance(item *domain.Item) (value, lots int64) {
	if item.HistoryStatus != domain.HistoryHistorical {
		return 0, 0
	}
	if item.InitialLots != nil {
		lots = *item.InitialLots
	}
	return item.InitialValue, lots
}

// closingDate 到期日: 存款取到期日，其余取贷款 / 计划结束日
func closingDate(item *domain.Item, settings *domain.ItemPlanSettings) *time.Time {
	if item.TypeCode == domain.TypeDeposit {
		return item.DepositEndDate
	}
	if settings == nil {
		return nil
	}
	if settings.LoanEndDate != nil {
		return settings.LoanEndDate
	}
	return settings.PlanEndDate
}

func itemComment(action string, item *domain.Item) *string {
	c := fmt.Sprintf("%s: %s %q", action, item.TypeCode, item.Name)
	return &c
}
