package amortization

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/domain"
)

// maxDoublings 年金上界翻倍次数上限，上界最大试到 Principal * 2^40
const maxDoublings = 40

// LoanTerms 贷款参数
type LoanTerms struct {
	Principal     int64
	AnnualPercent decimal.Decimal
	Start         time.Time   // 第一个计息日
	Dates         []time.Time // 还款日，升序
}

// AutoSchedule 按还款方式生成计划 (负债类贷款)
func AutoSchedule(t LoanTerms, repayment domain.RepaymentType) ([]Payout, error) {
	switch repayment {
	case domain.Annuity:
		payouts, _, err := AnnuitySchedule(t)
		return payouts, err
	case domain.Differentiated:
		return DifferentiatedSchedule(t)
	case "":
		return nil, domain.MissingField("repayment_type")
	}
	return nil, domain.Invalid("repayment_type", "unsupported repayment type %q", repayment)
}

// ManualSchedule 按约定还款额生成计划 (资产类借出款)
// TOTAL: 本金 = 还款额 - 当期利息; PRINCIPAL: 本金 = min(还款额, 剩余本金)
func ManualSchedule(t LoanTerms, kind domain.PaymentAmountKind, payment int64, fullRepayment bool) ([]Payout, error) {
	if len(t.Dates) == 0 {
		return nil, domain.ErrNoScheduleDates
	}
	if kind != domain.PaymentTotal && kind != domain.PaymentPrincipal {
		return nil, domain.MissingField("payment_amount_kind")
	}
	if payment <= 0 {
		return nil, domain.Invalid("payment_amount", "must be positive")
	}

	n := len(t.Dates)
	out := make([]Payout, n)
	precise := make([]decimal.Decimal, n)
	rounded := make([]int64, n)

	outstanding := t.Principal
	periodStart := domain.TruncateDay(t.Start)
	lastSkipped := false
	for i, date := range t.Dates {
		out[i].Date = date
		if periodStart.After(date) {
			precise[i] = decimal.Zero
			lastSkipped = i == n-1
			continue
		}

		precise[i] = Accrue(decimal.NewFromInt(outstanding), t.AnnualPercent, periodStart, date)
		rounded[i] = RoundMinor(precise[i])

		if i < n-1 {
			principal, err := principalPayment(outstanding, rounded[i], kind, payment)
			if err != nil {
				return nil, err
			}
			out[i].Principal = principal
			outstanding = max(outstanding-principal, 0)
		}
		periodStart = date.AddDate(0, 0, 1)
	}

	TailAdjust(precise, rounded)

	last := n - 1
	if !lastSkipped {
		if fullRepayment {
			out[last].Principal = max(outstanding, 0)
		} else {
			principal, err := principalPayment(outstanding, rounded[last], kind, payment)
			if err != nil {
				return nil, err
			}
			out[last].Principal = principal
		}
	}

	for i := range out {
		out[i].Interest = rounded[i]
	}
	return out, nil
}

func principalPayment(outstanding, interest int64, kind domain.PaymentAmountKind, payment int64) (int64, error) {
	if kind == domain.PaymentTotal {
		principal := payment - interest
		if principal <= 0 {
			return 0, domain.ErrPaymentInsufficient
		}
		return min(principal, outstanding), nil
	}
	return min(payment, outstanding), nil
}

// DifferentiatedSchedule 等额本金: 每期 floor(P/n)，最后一期还清余额
func DifferentiatedSchedule(t LoanTerms) ([]Payout, error) {
	n := len(t.Dates)
	if n == 0 {
		return nil, domain.ErrNoScheduleDates
	}
	base := t.Principal / int64(n)

	out := make([]Payout, n)
	precise := make([]decimal.Decimal, n)
	rounded := make([]int64, n)

	outstanding := t.Principal
	start := domain.TruncateDay(t.Start)
	for i, date := range t.Dates {
		precise[i] = Accrue(decimal.NewFromInt(outstanding), t.AnnualPercent, start, date)
		rounded[i] = RoundMinor(precise[i])

		principal := base
		if i == n-1 {
			principal = max(outstanding, 0)
		}
		out[i] = Payout{Date: date, Principal: principal}
		outstanding = max(outstanding-principal, 0)
		start = date.AddDate(0, 0, 1)
	}

	TailAdjust(precise, rounded)
	for i := range out {
		out[i].Interest = rounded[i]
	}
	return out, nil
}

// SimulateAnnuity 以固定月供 payment 模拟，返回最后剩余本金 (精确值)
// 月供不足以覆盖利息时提前返回当前余额
func SimulateAnnuity(t LoanTerms, payment int64) decimal.Decimal {
	outstanding := decimal.NewFromInt(t.Principal)
	pay := decimal.NewFromInt(payment)
	start := domain.TruncateDay(t.Start)
	for _, date := range t.Dates {
		interest := Accrue(outstanding, t.AnnualPercent, start, date)
		principal := pay.Sub(interest)
		if !principal.IsPositive() {
			return outstanding
		}
		outstanding = outstanding.Sub(principal)
		start = date.AddDate(0, 0, 1)
	}
	return outstanding
}

// SolveAnnuityPayment 求使最后剩余本金 <= 0 的最小整数月供
func SolveAnnuityPayment(t LoanTerms) (int64, error) {
	if t.Principal <= 0 {
		return 0, nil
	}
	if len(t.Dates) == 0 {
		return 0, domain.ErrNoScheduleDates
	}

	low, high := int64(1), max(t.Principal, 1)
	for attempts := 0; SimulateAnnuity(t, high).IsPositive(); attempts++ {
		if attempts >= maxDoublings {
			return 0, domain.ErrCannotSolve
		}
		high *= 2
	}

	for low < high {
		mid := low + (high-low)/2
		if SimulateAnnuity(t, mid).IsPositive() {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low, nil
}

// AnnuitySchedule 等额本息，返回计划和月供
// 最后一期还清剩余本金，使本金合计恰好等于 Principal
func AnnuitySchedule(t LoanTerms) ([]Payout, int64, error) {
	n := len(t.Dates)
	if n == 0 {
		return nil, 0, domain.ErrNoScheduleDates
	}
	payment, err := SolveAnnuityPayment(t)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Payout, n)
	precise := make([]decimal.Decimal, n)
	rounded := make([]int64, n)

	outstanding := t.Principal
	start := domain.TruncateDay(t.Start)
	for i, date := range t.Dates {
		precise[i] = Accrue(decimal.NewFromInt(outstanding), t.AnnualPercent, start, date)
		rounded[i] = RoundMinor(precise[i])

		var principal int64
		if i == n-1 {
			principal = max(outstanding, 0)
		} else if outstanding > 0 {
			principal = payment - rounded[i]
			if principal <= 0 {
				return nil, 0, domain.ErrPaymentInsufficient
			}
			principal = min(principal, outstanding)
		}
		out[i] = Payout{Date: date, Principal: principal}
		outstanding = max(outstanding-principal, 0)
		start = date.AddDate(0, 0, 1)
	}

	TailAdjust(precise, rounded)
	for i := range out {
		out[i].Interest = rounded[i]
	}
	return out, payment, nil
}
