package cli

import (
	"context"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/formula"
)

// FunctionsCmd returns the functions command.
func FunctionsCmd() *Command {
	fs := flag.NewFlagSet("functions", flag.ContinueOnError)
	category := fs.String("category", "", "Only list functions in `category` (conditional, math, string, date)")

	return &Command{
		Flags: fs,
		Usage: "functions [flags]",
		Short: "List builtin formula functions",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			current := ""
			found := false

			for _, sig := range formula.AvailableFunctions() {
				if *category != "" && !strings.EqualFold(sig.Category, *category) {
					continue
				}

				if sig.Category != current {
					if current != "" {
						o.Println()
					}

					o.Println("# " + sig.Category)

					current = sig.Category
				}

				o.Printf("%-44s %s\n", sig.Syntax, sig.Description)

				found = true
			}

			if !found {
				return fmt.Errorf("no functions in category %q", *category)
			}

			return nil
		},
	}
}
