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

type loanCmd struct {
	kind          string
	principal     int64
	rate          string
	currency      string
	start         string
	end           string
	firstPayout   string
	repayment     string
	paymentKind   string
	payment       int64
	fullRepayment bool
	rule          ruleFlags
}

func (*loanCmd) Name() string     { return "loan" }
func (*loanCmd) Synopsis() string { return "print a loan repayment schedule" }
func (*loanCmd) Usage() string {
	return `planctl loan -principal <minor units> -rate <percent> -start <date> -end <date> [flags]

  LIABILITY loans are computed from -repayment (ANNUITY or DIFFERENTIATED).
  ASSET loans (money lent) use -payment-kind and -payment.
`
}

func (p *loanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.kind, "kind", "LIABILITY", "LIABILITY for a loan taken, ASSET for a loan given.")
	f.Int64Var(&p.principal, "principal", 0, "Principal in minor units.")
	f.StringVar(&p.rate, "rate", "0", "Annual interest rate in percent.")
	f.StringVar(&p.currency, "currency", "USD", "Currency code used for display.")
	f.StringVar(&p.start, "start", "", "Open date (YYYY-MM-DD).")
	f.StringVar(&p.end, "end", "", "Loan end date (YYYY-MM-DD).")
	f.StringVar(&p.firstPayout, "first", "OPEN_DATE", "First payout rule for MONTHLY: OPEN_DATE, MONTH_END or SHIFT_ONE_MONTH.")
	f.StringVar(&p.repayment, "repayment", "ANNUITY", "ANNUITY or DIFFERENTIATED.")
	f.StringVar(&p.paymentKind, "payment-kind", "", "TOTAL or PRINCIPAL (ASSET only).")
	f.Int64Var(&p.payment, "payment", 0, "Fixed payment in minor units (ASSET only).")
	f.BoolVar(&p.fullRepayment, "full", true, "Repay the remaining principal on the end date.")
	p.rule.register(f)
}

func (p *loanCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	params := service.LoanPlanParams{
		Kind:          domain.ItemKind(p.kind),
		Principal:     p.principal,
		AnnualPercent: rate,
		OpenDate:      start,
		EndDate:       end,
		FullRepayment: p.fullRepayment,
		Rule:          p.rule.rule(),
		FirstPayout:   optionalEnum[domain.FirstPayoutRule](p.firstPayout),
		RepaymentType: optionalEnum[domain.RepaymentType](p.repayment),
	}
	if params.Kind == domain.Asset {
		params.PaymentAmountKind = optionalEnum[domain.PaymentAmountKind](p.paymentKind)
		if p.payment > 0 {
			params.PaymentAmount = &p.payment
		}
	}

	_, payouts, err := service.LoanPlan(params)
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
