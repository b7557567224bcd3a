package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/finplan/backend/internal/ledger/amortization"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
)

// ruleFlags 各子命令共用的重复规则参数
type ruleFlags struct {
	frequency    string
	weeklyDay    int
	monthlyDay   int
	monthlyRule  string
	intervalDays int
}

func (r *ruleFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.frequency, "freq", "MONTHLY", "Frequency: DAILY, WEEKLY, MONTHLY or REGULAR.")
	f.IntVar(&r.weeklyDay, "weekday", -1, "Weekday for WEEKLY, 0=Monday .. 6=Sunday.")
	f.IntVar(&r.monthlyDay, "day", 0, "Day of month for MONTHLY (1..31).")
	f.StringVar(&r.monthlyRule, "month-rule", "", "FIRST_DAY or LAST_DAY for MONTHLY when -day is not set.")
	f.IntVar(&r.intervalDays, "every", 0, "Interval in days for REGULAR.")
}

func (r *ruleFlags) rule() schedule.Rule {
	rule := schedule.Rule{Frequency: domain.Frequency(r.frequency)}
	if r.weeklyDay >= 0 {
		rule.WeeklyDay = &r.weeklyDay
	}
	if r.monthlyDay > 0 {
		rule.MonthlyDay = &r.monthlyDay
	}
	if r.monthlyRule != "" {
		mr := domain.MonthlyRule(r.monthlyRule)
		rule.MonthlyRule = &mr
	}
	if r.intervalDays > 0 {
		rule.IntervalDays = &r.intervalDays
	}
	return rule
}

func parseDates(start, end string) (time.Time, time.Time, error) {
	s, err := domain.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := domain.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return s, e, nil
}

func optionalEnum[T ~string](s string) *T {
	if s == "" {
		return nil
	}
	v := T(s)
	return &v
}

// printPayouts 以表格输出每期本金与利息
func printPayouts(w io.Writer, payouts []amortization.Payout, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\tprincipal\tinterest\ttotal\t")
	for _, p := range payouts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			p.Date.Format(domain.DateLayout),
			domain.FormatAmount(p.Principal, currency),
			domain.FormatAmount(p.Interest, currency),
			domain.FormatAmount(p.Principal+p.Interest, currency),
		)
	}
	principal, interest := amortization.TotalPrincipal(payouts), amortization.TotalInterest(payouts)
	fmt.Fprintf(tw, "total\t%s\t%s\t%s\t\n",
		domain.FormatAmount(principal, currency),
		domain.FormatAmount(interest, currency),
		domain.FormatAmount(principal+interest, currency),
	)
	return tw.Flush()
}
