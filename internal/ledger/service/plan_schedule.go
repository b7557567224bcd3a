package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/amortization"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
)

// InterestPlanParams 存款利息计划参数
type InterestPlanParams struct {
	Principal     int64
	AnnualPercent decimal.Decimal
	OpenDate      time.Time
	EndDate       time.Time
	PayoutOrder   domain.InterestPayoutOrder
	FirstPayout   *domain.FirstPayoutRule
	Capitalize    bool
}

// InterestPlan 计算付息日与每期利息 (不访问数据库)
// 按月付息时总是包含到期日；到期一次付息时只有到期日
func InterestPlan(p InterestPlanParams) (schedule.Rule, []amortization.Payout, error) {
	open, end := domain.TruncateDay(p.OpenDate), domain.TruncateDay(p.EndDate)

	var (
		rule  schedule.Rule
		dates []time.Time
	)
	switch p.PayoutOrder {
	case domain.PayoutMonthly:
		if p.FirstPayout == nil {
			return schedule.Rule{}, nil, domain.MissingField("first_payout_rule")
		}
		start, r, err := schedule.ResolveMonthlyStart(open, end, *p.FirstPayout)
		if err != nil {
			return schedule.Rule{}, nil, err
		}
		rule = r
		dates = append(schedule.Generate(start, end, rule), end)
	case domain.PayoutEndOfTerm:
		day := end.Day()
		rule = schedule.Rule{Frequency: domain.Monthly, MonthlyDay: &day}
		dates = []time.Time{end}
	case "":
		return schedule.Rule{}, nil, domain.MissingField("interest_payout_order")
	default:
		return schedule.Rule{}, nil, domain.Invalid("interest_payout_order", "unsupported payout order %q", p.PayoutOrder)
	}

	dates = schedule.NotBefore(schedule.Normalize(dates), open)
	if len(dates) == 0 {
		return schedule.Rule{}, nil, domain.ErrNoScheduleDates
	}

	payouts := amortization.InterestSchedule(p.Principal, p.AnnualPercent, open, dates, p.Capitalize)
	if len(payouts) == 0 {
		return schedule.Rule{}, nil, domain.ErrNoScheduleDates
	}
	return rule, payouts, nil
}

// LoanPlanParams 贷款计划参数
type LoanPlanParams struct {
	Kind              domain.ItemKind
	Principal         int64
	AnnualPercent     decimal.Decimal
	OpenDate          time.Time
	EndDate           time.Time
	FullRepayment     bool
	Rule              schedule.Rule
	FirstPayout       *domain.FirstPayoutRule
	RepaymentType     *domain.RepaymentType
	PaymentAmountKind *domain.PaymentAmountKind
	PaymentAmount     *int64
}

// LoanPlan 计算还款日与每期本金、利息 (不访问数据库)
// 负债按还款方式自动计算；资产 (借出款) 按约定还款额计算
func LoanPlan(p LoanPlanParams) (schedule.Rule, []amortization.Payout, error) {
	open, end := domain.TruncateDay(p.OpenDate), domain.TruncateDay(p.EndDate)
	if end.Before(open) {
		return schedule.Rule{}, nil, domain.Validation(domain.ReasonInvalidDate, "plan_end_date", "end date is before open date")
	}

	rule, start := p.Rule, open
	if rule.Frequency == domain.Monthly {
		if p.FirstPayout == nil {
			return schedule.Rule{}, nil, domain.MissingField("first_payout_rule")
		}
		var err error
		start, rule, err = schedule.ResolveMonthlyStart(open, end, *p.FirstPayout)
		if err != nil {
			return schedule.Rule{}, nil, err
		}
	} else if err := schedule.Validate(rule); err != nil {
		return schedule.Rule{}, nil, err
	}

	dates := schedule.Generate(start, end, rule)
	if p.FullRepayment && len(dates) > 0 && !dates[len(dates)-1].Equal(end) {
		dates = append(dates, end)
	}
	dates = schedule.NotBefore(schedule.Normalize(dates), open)
	if len(dates) == 0 {
		return schedule.Rule{}, nil, domain.ErrNoScheduleDates
	}

	terms := amortization.LoanTerms{
		Principal:     p.Principal,
		AnnualPercent: p.AnnualPercent,
		Start:         open,
		Dates:         dates,
	}

	if p.Kind == domain.Liability {
		if p.RepaymentType == nil {
			return schedule.Rule{}, nil, domain.MissingField("repayment_type")
		}
		payouts, err := amortization.AutoSchedule(terms, *p.RepaymentType)
		return rule, payouts, err
	}

	if p.PaymentAmountKind == nil {
		return schedule.Rule{}, nil, domain.MissingField("payment_amount_kind")
	}
	if p.PaymentAmount == nil {
		return schedule.Rule{}, nil, domain.MissingField("payment_amount")
	}
	payouts, err := amortization.ManualSchedule(terms, *p.PaymentAmountKind, *p.PaymentAmount, p.FullRepayment)
	return rule, payouts, err
}
