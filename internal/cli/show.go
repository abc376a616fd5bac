package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// ShowCmd returns the show command.
func ShowCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <task>",
		Short: "Show a task with every field value",
		Long: `Print a task's attributes and every custom field, computing formula and
rollup fields. Unset fields are left blank; failed computations show their
error code.`,
		Args: ExactlyOne("task id"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}

			row, err := c.Engine(a.now).Row(args[0])
			if err != nil {
				return err
			}

			t := row.Task

			o.Println("id: " + t.ID)
			o.Println("title: " + t.Title)

			if t.Parent != "" {
				o.Println("parent: " + t.Parent)
			}

			if t.Status != "" {
				o.Println("status: " + t.Status)
			}

			if t.Priority != "" {
				o.Println("priority: " + t.Priority)
			}

			if t.Deadline != nil {
				o.Println("deadline: " + fields.Time(*t.Deadline).Display())
			}

			if t.Progress != nil {
				o.Println("progress: " + fields.FormatNumber(*t.Progress))
			}

			if len(row.Cells) == 0 {
				return nil
			}

			o.Println()
			o.Println("# fields")

			for _, cell := range row.Cells {
				o.Printf("%s (%s): %s\n", cell.Field.Name, cell.Field.Type, cell.Display())
			}

			return nil
		},
	}
}
