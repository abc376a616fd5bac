package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/rollup"
)

// RollupCmd returns the rollup command.
func RollupCmd(a *app) *Command {
	fs := flag.NewFlagSet("rollup", flag.ContinueOnError)
	agg := fs.String("agg", "", "Aggregate a non-rollup field with `aggregation` (sum, avg, count, min, max, concat)")
	taskID := fs.StringP("task", "t", "", "Compute the rollup over this task's subtasks")

	return &Command{
		Flags: fs,
		Usage: "rollup <field> [flags]",
		Short: "Compute a rollup",
		Long: `Compute a rollup field over every task in the project, or over one task's
subtasks with --task. Any other field can be aggregated across the project
with --agg.`,
		Examples: []string{
			`rollup 'total budget'`,
			`rollup 'total budget' --task epic`,
			`rollup hours --agg max`,
		},
		Args: ExactlyOne("field name"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}

			engine := c.Engine(a.now)
			name := args[0]

			var r fields.Result

			switch {
			case *agg != "":
				if *taskID != "" {
					return errors.New("--agg and --task cannot be combined")
				}

				aggregation, err := rollup.ParseAggregation(*agg)
				if err != nil {
					return err
				}

				r, err = engine.Aggregate(name, aggregation)
				if err != nil {
					return err
				}
			case *taskID != "":
				r, err = engine.Value(*taskID, name)
				if err != nil {
					return err
				}
			default:
				r, err = engine.ProjectRollup(name)
				if err != nil {
					return fmt.Errorf("%w (use --agg to aggregate other fields)", err)
				}
			}

			printResult(o, "", r, false)

			return nil
		},
	}
}
