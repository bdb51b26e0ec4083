// Command ibovselic downloads IBOVESPA and SELIC history as JSON files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

// as a CLI application it has a short lived lifecycle, global flags are fine.
var configPath = flag.String("config", "", "path to a YAML config file (defaults to ibovselic.yaml when present)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&exportCmd{}, "")
	commander.Register(&seriesCmd{}, "")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
