package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/service"
)

type interestCmd struct {
	principal   int64
	rate        string
	currency    string
	start       string
	end         string
	order       string
	firstPayout string
	capitalize  bool
}

func (*interestCmd) Name() string     { return "interest" }
func (*interestCmd) Synopsis() string { return "print a deposit interest schedule" }
func (*interestCmd) Usage() string {
	return `planctl interest -principal <minor units> -rate <percent> -start <date> -end <date> [-order MONTHLY|END_OF_TERM] [-capitalize]
`
}

func (p *interestCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&p.principal, "principal", 0, "Deposit amount in minor units.")
	f.StringVar(&p.rate, "rate", "0", "Annual interest rate in percent.")
	f.StringVar(&p.currency, "currency", "USD", "Currency code used for display.")
	f.StringVar(&p.start, "start", "", "Open date (YYYY-MM-DD).")
	f.StringVar(&p.end, "end", "", "Deposit end date (YYYY-MM-DD).")
	f.StringVar(&p.order, "order", "MONTHLY", "MONTHLY or END_OF_TERM.")
	f.StringVar(&p.firstPayout, "first", "MONTH_END", "First payout rule for MONTHLY: OPEN_DATE, MONTH_END or SHIFT_ONE_MONTH.")
	f.BoolVar(&p.capitalize, "capitalize", false, "Add each payout to the principal.")
}

func (p *interestCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, end, err := parseDates(p.start, p.end)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	rate, err := decimal.NewFromString(p.rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid rate %q: %v\n", p.rate, err)
		return subcommands.ExitUsageError
	}

	_, payouts, err := service.InterestPlan(service.InterestPlanParams{
		Principal:     p.principal,
		AnnualPercent: rate,
		OpenDate:      start,
		EndDate:       end,
		PayoutOrder:   domain.InterestPayoutOrder(p.order),
		FirstPayout:   optionalEnum[domain.FirstPayoutRule](p.firstPayout),
		Capitalize:    p.capitalize,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := printPayouts(os.Stdout, payouts, p.currency); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
