package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/formula"
)

// RefsCmd returns the refs command.
func RefsCmd(_ *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("refs", flag.ContinueOnError),
		Usage: "refs <formula>",
		Short: "List the fields a formula references",
		Long: `Print each field name the formula references, one per line, in order of
first occurrence. Duplicates are listed once.`,
		Args: ExactlyOne("formula argument (quote it)"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			for _, name := range formula.ExtractFieldRefs(args[0]) {
				o.Println(name)
			}

			return nil
		},
	}
}
