// Package schedule 把重复规则展开为具体日期 (纯函数，无 IO)
package schedule

import (
	"sort"
	"time"

	"github.com/finplan/backend/internal/ledger/domain"
)

// Rule 重复规则
type Rule struct {
	Frequency    domain.Frequency
	WeeklyDay    *int // 0=周一 ... 6=周日
	MonthlyDay   *int
	MonthlyRule  *domain.MonthlyRule
	IntervalDays *int
}

// Generate 生成 [start, end] 内的日期，升序去重
// start <= end 由调用方保证
func Generate(start, end time.Time, rule Rule) []time.Time {
	start, end = domain.TruncateDay(start), domain.TruncateDay(end)
	if end.Before(start) {
		return nil
	}

	var dates []time.Time
	switch rule.Frequency {
	case domain.Daily:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	case domain.Weekly:
		if rule.WeeklyDay == nil {
			return nil
		}
		offset := ((*rule.WeeklyDay-weekday(start))%7 + 7) % 7
		for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	case domain.Monthly:
		year, month := start.Year(), start.Month()
		for {
			first := domain.Date(year, month, 1)
			if first.After(end) {
				break
			}
			candidate := monthlyCandidate(year, month, rule)
			if !candidate.Before(start) && !candidate.After(end) {
				dates = append(dates, candidate)
			}
			next := first.AddDate(0, 1, 0)
			year, month = next.Year(), next.Month()
		}
	case domain.Regular:
		if rule.IntervalDays == nil || *rule.IntervalDays < 1 {
			return nil
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, *rule.IntervalDays) {
			dates = append(dates, d)
		}
	}
	return Normalize(dates)
}

// Validate 校验频率与日期参数的组合
func Validate(rule Rule) error {
	if !rule.Frequency.IsValid() {
		return domain.Invalid("frequency", "unsupported frequency %q", rule.Frequency)
	}
	switch rule.Frequency {
	case domain.Weekly:
		if rule.WeeklyDay == nil {
			return domain.MissingField("weekly_day")
		}
		if *rule.WeeklyDay < 0 || *rule.WeeklyDay > 6 {
			return domain.Invalid("weekly_day", "must be between 0 and 6")
		}
	case domain.Monthly:
		if rule.MonthlyDay != nil && (*rule.MonthlyDay < 1 || *rule.MonthlyDay > 31) {
			return domain.Invalid("monthly_day", "must be between 1 and 31")
		}
		if rule.MonthlyRule != nil && *rule.MonthlyRule != domain.FirstDay && *rule.MonthlyRule != domain.LastDay {
			return domain.Invalid("monthly_rule", "unsupported monthly rule %q", *rule.MonthlyRule)
		}
	case domain.Regular:
		if rule.IntervalDays == nil {
			return domain.MissingField("interval_days")
		}
		if *rule.IntervalDays < 1 {
			return domain.Invalid("interval_days", "must be at least 1")
		}
	}
	return nil
}

// ResolveMonthlyStart 根据首次付息规则确定月度计划的起始日和规则
func ResolveMonthlyStart(base, end time.Time, first domain.FirstPayoutRule) (time.Time, Rule, error) {
	base = domain.TruncateDay(base)
	rule := Rule{Frequency: domain.Monthly}
	start := base

	switch first {
	case domain.FirstPayoutOpenDate:
		day := base.Day()
		rule.MonthlyDay = &day
	case domain.FirstPayoutMonthEnd:
		last := domain.LastDay
		rule.MonthlyRule = &last
	case domain.FirstPayoutShiftOneMonth:
		start = AddMonthsClamped(base, 1)
		day := start.Day()
		rule.MonthlyDay = &day
	default:
		return time.Time{}, Rule{}, domain.MissingField("first_payout_rule")
	}

	if start.After(domain.TruncateDay(end)) {
		return time.Time{}, Rule{}, domain.Validation(domain.ReasonInvalidDate, "plan_end_date", "schedule start %s is after end %s",
			start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}
	return start, rule, nil
}

// Normalize 排序并去重
func Normalize(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return dates
	}
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = domain.TruncateDay(d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	uniq := out[:1]
	for _, d := range out[1:] {
		if !d.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, d)
		}
	}
	return uniq
}

// NotBefore 过滤掉早于 min 的日期
func NotBefore(dates []time.Time, min time.Time) []time.Time {
	out := dates[:0:0]
	for _, d := range dates {
		if !d.Before(min) {
			out = append(out, d)
		}
	}
	return out
}

// DaysInMonth 当月天数
func DaysInMonth(year int, month time.Month) int {
	return domain.Date(year, month+1, 0).Day()
}

// AddMonthsClamped 加 n 个月，日超出时取当月最后一天 (1/31 + 1 = 2/28)
func AddMonthsClamped(t time.Time, n int) time.Time {
	first := domain.Date(t.Year(), t.Month(), 1).AddDate(0, n, 0)
	day := t.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return domain.Date(first.Year(), first.Month(), day)
}

func monthlyCandidate(year int, month time.Month, rule Rule) time.Time {
	last := DaysInMonth(year, month)
	if rule.MonthlyDay != nil {
		day := *rule.MonthlyDay
		if day > last {
			day = last
		}
		if day < 1 {
			day = 1
		}
		return domain.Date(year, month, day)
	}
	if rule.MonthlyRule != nil && *rule.MonthlyRule == domain.FirstDay {
		return domain.Date(year, month, 1)
	}
	return domain.Date(year, month, last)
}

// weekday 周一为 0
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
