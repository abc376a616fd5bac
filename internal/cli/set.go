package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
)

// SetCmd returns the set command.
func SetCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("set", flag.ContinueOnError),
		Usage: "set <task> <field> [value...]",
		Short: "Set or clear a field value on a task",
		Long: `Set a field on a task. The value is parsed for the field's type: numbers
for number, currency, percent ("50%" is accepted) and rating (0 to 5),
dates as YYYY-MM-DD or RFC3339, true/false for checkboxes, an option value
or label for select, and comma-separated options for multiselect.

Omit the value (or pass "") to clear the field. Formula and rollup fields
are computed and cannot be set.`,
		Args: AtLeast(2, "a task id, a field name and a value"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			taskID, name := args[0], args[1]
			value := strings.Join(args[2:], " ")

			var shown string

			err := a.update(func(c *project.Catalog) error {
				if err := c.SetValue(taskID, name, value); err != nil {
					return err
				}

				def, _ := c.Field(name)
				shown = project.FormatValue(def, c.Stored(taskID, name))

				return nil
			})
			if err != nil {
				return err
			}

			if shown == "" {
				o.Printf("%s.%s cleared\n", taskID, name)
			} else {
				o.Printf("%s.%s = %s\n", taskID, name, shown)
			}

			return nil
		},
	}
}
