package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"ibovselic/internal/provider/bcb"
)

// seriesCmd implements the "series" command.
type seriesCmd struct{}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "lists the well-known SGS series codes" }
func (*seriesCmd) Usage() string {
	return `series:

Lists the SGS series codes with a predefined meaning. Any other code can be
passed to export -selic-serie.
`
}

func (*seriesCmd) SetFlags(*flag.FlagSet) {}

func (*seriesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tDESCRIPTION")
	for _, s := range bcb.KnownSeries() {
		fmt.Fprintf(w, "%d\t%s\n", s.Code, s.Description)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
