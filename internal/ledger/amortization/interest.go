// Package amortization 按日计息与贷款摊还 (纯计算)
package amortization

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/domain"
)

var hundred = decimal.NewFromInt(100)

// Payout 某个付款日的利息与本金 (最小货币单位)
type Payout struct {
	Date      time.Time
	Interest  int64
	Principal int64
}

// DaysInYear 闰年 366 天
func DaysInYear(year int) int {
	if domain.Date(year, time.December, 31).YearDay() == 366 {
		return 366
	}
	return 365
}

// DailyRate 年化百分比折算为当天所在年份的日利率
func DailyRate(annualPercent decimal.Decimal, day time.Time) decimal.Decimal {
	return annualPercent.Div(hundred).Div(decimal.NewFromInt(int64(DaysInYear(day.Year()))))
}

// Accrue 计算 [start, end] (含两端) 的精确利息
// 每天使用所在年份的天数，跨年时按年份分段累加
func Accrue(principal, annualPercent decimal.Decimal, start, end time.Time) decimal.Decimal {
	if !principal.IsPositive() || !annualPercent.IsPositive() {
		return decimal.Zero
	}
	start, end = domain.TruncateDay(start), domain.TruncateDay(end)
	if end.Before(start) {
		return decimal.Zero
	}

	total := decimal.Zero
	for year := start.Year(); year <= end.Year(); year++ {
		segStart := domain.MaxDate(start, domain.Date(year, time.January, 1))
		segEnd := domain.Date(year, time.December, 31)
		if end.Before(segEnd) {
			segEnd = end
		}
		days := int64(segEnd.Sub(segStart).Hours()/24) + 1

		// principal * rate * days / (100 * daysInYear)，只做一次除法
		numerator := principal.Mul(annualPercent).Mul(decimal.NewFromInt(days))
		denominator := hundred.Mul(decimal.NewFromInt(int64(DaysInYear(year))))
		total = total.Add(numerator.Div(denominator))
	}
	return total
}

// RoundMinor 四舍五入 (half-up) 到最小货币单位
func RoundMinor(v decimal.Decimal) int64 {
	return v.Round(0).IntPart()
}

// TailAdjust 把 round(Σ精确值) 与 Σ舍入值 的差额补到最后一期
func TailAdjust(precise []decimal.Decimal, rounded []int64) {
	if len(precise) == 0 || len(rounded) == 0 {
		return
	}
	total := decimal.Sum(decimal.Zero, precise...)
	var sum int64
	for _, r := range rounded {
		sum += r
	}
	rounded[len(rounded)-1] += RoundMinor(total) - sum
}

// InterestSchedule 存款利息计划
// 早于 openDate 的付息日被跳过；capitalize 时每期舍入后的利息计入本金
func InterestSchedule(principal int64, annualPercent decimal.Decimal, openDate time.Time, payouts []time.Time, capitalize bool) []Payout {
	var (
		out     []Payout
		precise []decimal.Decimal
		rounded []int64
	)

	base := principal
	periodStart := domain.TruncateDay(openDate)
	for _, date := range payouts {
		if periodStart.After(date) {
			continue
		}
		value := Accrue(decimal.NewFromInt(base), annualPercent, periodStart, date)
		r := RoundMinor(value)

		precise = append(precise, value)
		rounded = append(rounded, r)
		out = append(out, Payout{Date: date})

		if capitalize {
			base += r
		}
		periodStart = date.AddDate(0, 0, 1)
	}

	TailAdjust(precise, rounded)
	for i := range out {
		out[i].Interest = rounded[i]
	}
	return out
}

// TotalInterest 利息合计
func TotalInterest(payouts []Payout) int64 {
	var sum int64
	for _, p := range payouts {
		sum += p.Interest
	}
	return sum
}

// TotalPrincipal 本金合计
func TotalPrincipal(payouts []Payout) int64 {
	var sum int64
	for _, p := range payouts {
		sum += p.Principal
	}
	return sum
}
