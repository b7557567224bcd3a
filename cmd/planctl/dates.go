package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/schedule"
)

type datesCmd struct {
	start string
	end   string
	rule  ruleFlags
}

func (*datesCmd) Name() string     { return "dates" }
func (*datesCmd) Synopsis() string { return "list the dates produced by a recurrence rule" }
func (*datesCmd) Usage() string {
	return `planctl dates -start <date> -end <date> [-freq MONTHLY -day 15 | -freq WEEKLY -weekday 0 | ...]

  Prints every date of the rule between start and end, both inclusive.
`
}

func (p *datesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.start, "start", "", "First date (YYYY-MM-DD).")
	f.StringVar(&p.end, "end", "", "Last date (YYYY-MM-DD).")
	p.rule.register(f)
}

func (p *datesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, end, err := parseDates(p.start, p.end)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	rule := p.rule.rule()
	if err := schedule.Validate(rule); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	dates := schedule.Generate(start, end, rule)
	if len(dates) == 0 {
		fmt.Fprintln(os.Stderr, domain.ErrNoScheduleDates)
		return subcommands.ExitFailure
	}
	for _, d := range dates {
		fmt.Println(d.Format(domain.DateLayout))
	}
	return subcommands.ExitSuccess
}
