// planctl 离线计算还款 / 付息计划，不连接数据库
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&datesCmd{}, "schedule")
	commander.Register(&loanCmd{}, "schedule")
	commander.Register(&interestCmd{}, "schedule")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
