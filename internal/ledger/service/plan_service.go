package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/amortization"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
)

// PlanService 资产计划 (利息 / 还款) 的状态机
// 签名不变时不做任何事；签名变化或重新启用时删除旧的自动链并重新生成
type PlanService struct {
	db       *gorm.DB
	items    domain.ItemRepository
	settings domain.PlanSettingsRepository
	refs     domain.ReferenceResolver
	chains   *ChainService
	ledger   *LedgerService
	names    CategoryNames
	logger   *zap.Logger
}

func NewPlanService(
	db *gorm.DB,
	items domain.ItemRepository,
	settings domain.PlanSettingsRepository,
	refs domain.ReferenceResolver,
	chains *ChainService,
	ledger *LedgerService,
	names CategoryNames,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		db:       db,
		items:    items,
		settings: settings,
		refs:     refs,
		chains:   chains,
		ledger:   ledger,
		names:    names.WithDefaults(),
		logger:   logger,
	}
}

func (s *PlanService) GetSettings(ctx context.Context, ownerID, itemID int64) (*domain.ItemPlanSettings, error) {
	if _, err := s.items.Get(ctx, s.db, ownerID, itemID); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx, s.db, itemID)
}

// UpdateSettings 整体替换计划设置并同步自动链
func (s *PlanService) UpdateSettings(ctx context.Context, ownerID, itemID int64, in domain.ItemPlanSettings) (result *domain.ItemPlanSettings, err error) {
	ctx, done := track(ctx, "update_plan", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.items.Lock(ctx, tx, ownerID, itemID)
		if err != nil {
			return err
		}
		if !item.IsActive() {
			return domain.Validation(domain.ReasonItemInactive, "", "item %q is closed or archived", item.Name)
		}

		prev, err := s.settings.Get(ctx, tx, itemID)
		if err != nil {
			return err
		}
		next, err := s.saveSettings(ctx, tx, item, prev, &in)
		if err != nil {
			return err
		}
		if _, err := s.Sync(ctx, tx, item, next, domain.PlanSignature(item, prev)); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// RebuildPlan 忽略签名，强制重新生成
func (s *PlanService) RebuildPlan(ctx context.Context, ownerID, itemID int64) (chains int, err error) {
	ctx, done := track(ctx, "rebuild_plan", ownerID)
	defer func() { done(err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.items.Lock(ctx, tx, ownerID, itemID)
		if err != nil {
			return err
		}
		settings, err := s.settings.Get(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.chains.deleteAutoChains(ctx, tx, ownerID, itemID); err != nil {
			return err
		}
		if domain.PlanSignature(item, settings) == "" || !item.IsActive() {
			return nil
		}
		chains, err = s.createChains(ctx, tx, item, settings)
		return err
	})
	return chains, err
}

// saveSettings 校验并保存；prev 为空时新建
func (s *PlanService) saveSettings(ctx context.Context, tx *gorm.DB, item *domain.Item, prev, in *domain.ItemPlanSettings) (*domain.ItemPlanSettings, error) {
	if in.Enabled && !domain.IsInterestType(item.TypeCode) && !domain.IsLoanType(item.TypeCode) {
		return nil, domain.Invalid("enabled", "auto plans are not supported for %s", item.TypeCode)
	}
	if in.RepaymentFrequency != nil && !in.RepaymentFrequency.IsValid() {
		return nil, domain.Invalid("repayment_frequency", "unsupported frequency %q", *in.RepaymentFrequency)
	}

	next := *in
	next.ItemID = item.ID
	next.ID = 0
	if prev != nil {
		next.ID = prev.ID
		next.CreatedAt = prev.CreatedAt
	}
	if err := s.settings.Save(ctx, tx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Sync 比较签名，必要时重建自动链；返回是否重建
func (s *PlanService) Sync(ctx context.Context, tx *gorm.DB, item *domain.Item, settings *domain.ItemPlanSettings, prevSignature string) (bool, error) {
	signature := domain.PlanSignature(item, settings)
	if signature == prevSignature {
		return false, nil
	}

	removed, err := s.chains.deleteAutoChains(ctx, tx, item.OwnerID, item.ID)
	if err != nil {
		return false, err
	}
	created := 0
	if signature != "" && item.IsActive() {
		if created, err = s.createChains(ctx, tx, item, settings); err != nil {
			return false, err
		}
	}

	s.logger.Info("plan rebuilt",
		zap.Int64("owner_id", item.OwnerID),
		zap.Int64("item_id", item.ID),
		zap.Int("chains_removed", removed),
		zap.Int("chains_created", created),
	)
	return true, nil
}

func (s *PlanService) createChains(ctx context.Context, tx *gorm.DB, item *domain.Item, settings *domain.ItemPlanSettings) (int, error) {
	switch {
	case domain.IsInterestType(item.TypeCode):
		return 1, s.createInterestChain(ctx, tx, item, settings)
	case domain.IsLoanType(item.TypeCode):
		return 2, s.createLoanChains(ctx, tx, item, settings)
	}
	return 0, domain.Invalid("type_code", "auto plans are not supported for %s", item.TypeCode)
}

func (s *PlanService) createInterestChain(ctx context.Context, tx *gorm.DB, item *domain.Item, settings *domain.ItemPlanSettings) error {
	if !item.InterestRate.Valid {
		return domain.MissingField("interest_rate")
	}
	if item.InterestPayoutOrder == nil {
		return domain.MissingField("interest_payout_order")
	}

	end := settings.PlanEndDate
	endField := "plan_end_date"
	if item.TypeCode == domain.TypeDeposit {
		end, endField = item.DepositEndDate, "deposit_end_date"
	}
	if end == nil {
		return domain.MissingField(endField)
	}

	rule, payouts, err := InterestPlan(InterestPlanParams{
		Principal:     item.InitialValue,
		AnnualPercent: item.InterestRate.Decimal,
		OpenDate:      item.OpenDate,
		EndDate:       *end,
		PayoutOrder:   *item.InterestPayoutOrder,
		FirstPayout:   settings.FirstPayoutRule,
		Capitalize:    item.InterestCapitalization,
	})
	if err != nil {
		return err
	}

	// 资本化时利息计入存款本身
	targetID := item.ID
	if !item.InterestCapitalization {
		if item.InterestPayoutAccountID == nil {
			return domain.MissingField("interest_payout_account_id")
		}
		if _, err := s.assetSide(ctx, tx, item, *item.InterestPayoutAccountID, "interest_payout_account_id"); err != nil {
			return err
		}
		targetID = *item.InterestPayoutAccountID
	}

	categoryName := s.names.SavingsInterest
	if item.TypeCode == domain.TypeDeposit {
		categoryName = s.names.DepositInterest
	}
	category, err := s.refs.CategoryByName(ctx, tx, item.OwnerID, categoryName)
	if err != nil {
		return err
	}

	chain := autoChain(item, "Interest: "+item.Name, domain.PurposeInterest, rule, payouts)
	template := TransactionInput{
		Direction:     domain.Income,
		PrimaryItemID: targetID,
		CategoryID:    &category.ID,
	}
	return s.chains.materialize(ctx, tx, item.OwnerID, chain, template, interestRows(payouts))
}

func (s *PlanService) createLoanChains(ctx context.Context, tx *gorm.DB, item *domain.Item, settings *domain.ItemPlanSettings) error {
	if !item.InterestRate.Valid {
		return domain.MissingField("interest_rate")
	}
	if settings.RepaymentFrequency == nil {
		return domain.MissingField("repayment_frequency")
	}
	if settings.RepaymentAccountID == nil {
		return domain.MissingField("repayment_account_id")
	}
	end := settings.LoanEndDate
	if end == nil {
		end = settings.PlanEndDate
	}
	if end == nil {
		return domain.MissingField("plan_end_date")
	}

	rule, payouts, err := LoanPlan(LoanPlanParams{
		Kind:          item.Kind,
		Principal:     item.InitialValue,
		AnnualPercent: item.InterestRate.Decimal,
		OpenDate:      item.OpenDate,
		EndDate:       *end,
		FullRepayment: settings.LoanEndDate != nil || item.Kind == domain.Liability,
		Rule: schedule.Rule{
			Frequency:    *settings.RepaymentFrequency,
			WeeklyDay:    settings.RepaymentWeeklyDay,
			MonthlyDay:   settings.RepaymentMonthlyDay,
			MonthlyRule:  settings.RepaymentMonthlyRule,
			IntervalDays: settings.RepaymentIntervalDays,
		},
		FirstPayout:       settings.FirstPayoutRule,
		RepaymentType:     settings.RepaymentType,
		PaymentAmountKind: settings.PaymentAmountKind,
		PaymentAmount:     settings.PaymentAmount,
	})
	if err != nil {
		return err
	}

	repaymentID := *settings.RepaymentAccountID
	if _, err := s.assetSide(ctx, tx, item, repaymentID, "repayment_account_id"); err != nil {
		return err
	}

	loanID := item.ID
	principal := TransactionInput{Direction: domain.Transfer}
	interest := TransactionInput{PrimaryItemID: repaymentID}
	var categoryName string
	if item.Kind == domain.Liability {
		// 还款账户 -> 贷款，利息为支出
		principal.PrimaryItemID, principal.CounterpartyItemID = repaymentID, &loanID
		interest.Direction = domain.Expense
		categoryName = s.names.LoanInterestExpense
	} else {
		// 借出款 -> 还款账户，利息为收入
		principal.PrimaryItemID, principal.CounterpartyItemID = loanID, &repaymentID
		interest.Direction = domain.Income
		categoryName = s.names.LoanInterestIncome
	}
	category, err := s.refs.CategoryByName(ctx, tx, item.OwnerID, categoryName)
	if err != nil {
		return err
	}
	interest.CategoryID = &category.ID

	principalChain := autoChain(item, "Principal repayment: "+item.Name, domain.PurposePrincipal, rule, payouts)
	if err := s.chains.materialize(ctx, tx, item.OwnerID, principalChain, principal, principalRows(payouts)); err != nil {
		return err
	}
	interestChain := autoChain(item, "Interest: "+item.Name, domain.PurposeInterest, rule, payouts)
	return s.chains.materialize(ctx, tx, item.OwnerID, interestChain, interest, interestRows(payouts))
}

// assetSide 收款 / 还款账户必须是同币种的资产
func (s *PlanService) assetSide(ctx context.Context, tx *gorm.DB, item *domain.Item, accountID int64, field string) (Side, error) {
	side, err := s.ledger.resolver.Resolve(ctx, tx, item.OwnerID, accountID, field)
	if err != nil {
		return Side{}, err
	}
	if side.Effective.Kind != domain.Asset {
		return Side{}, domain.Invalid(field, "account must be an asset")
	}
	if side.Effective.CurrencyCode != item.CurrencyCode {
		return Side{}, domain.Validation(domain.ReasonCurrencyMismatch, field, "account currency %s does not match item currency %s",
			side.Effective.CurrencyCode, item.CurrencyCode)
	}
	return side, nil
}

func autoChain(item *domain.Item, name string, purpose domain.ChainPurpose, rule schedule.Rule, payouts []amortization.Payout) *domain.TransactionChain {
	itemID := item.ID
	return &domain.TransactionChain{
		OwnerID:      item.OwnerID,
		Name:         name,
		StartDate:    payouts[0].Date,
		EndDate:      payouts[len(payouts)-1].Date,
		Frequency:    rule.Frequency,
		WeeklyDay:    rule.WeeklyDay,
		MonthlyDay:   rule.MonthlyDay,
		MonthlyRule:  rule.MonthlyRule,
		IntervalDays: rule.IntervalDays,
		Source:       domain.ChainAuto,
		Purpose:      purpose,
		LinkedItemID: &itemID,
	}
}

func interestRows(payouts []amortization.Payout) []plannedRow {
	rows := make([]plannedRow, len(payouts))
	for i, p := range payouts {
		rows[i] = plannedRow{Date: p.Date, Amount: p.Interest}
	}
	return rows
}

func principalRows(payouts []amortization.Payout) []plannedRow {
	rows := make([]plannedRow, len(payouts))
	for i, p := range payouts {
		rows[i] = plannedRow{Date: p.Date, Amount: p.Principal}
	}
	return rows
}
