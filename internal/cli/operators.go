package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// OperatorsCmd returns the operators command.
func OperatorsCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("operators", flag.ContinueOnError),
		Usage: "operators [type]",
		Short: "Show which filter operators each field type accepts",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				for _, t := range fields.AllFieldTypes() {
					ops := fields.OperatorsFor(t)

					names := make([]string, len(ops))
					for i, op := range ops {
						names[i] = string(op)
					}

					o.Printf("%-12s %s\n", t, strings.Join(names, ", "))
				}

				return nil
			}

			t, err := fields.ParseFieldType(args[0])
			if err != nil {
				return err
			}

			for _, op := range fields.OperatorsFor(t) {
				info, _ := op.Info()

				operand := ""
				if info.NeedsOperand {
					operand = " <value>"
				}

				o.Printf("%-18s %s%s\n", op, info.Label, operand)
			}

			return nil
		},
	}
}
