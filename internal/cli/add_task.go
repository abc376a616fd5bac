package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// AddTaskCmd returns the add-task command.
func AddTaskCmd(a *app) *Command {
	fs := flag.NewFlagSet("add-task", flag.ContinueOnError)
	title := fs.String("title", "", "Task title")
	parent := fs.StringP("parent", "p", "", "Parent task id")
	status := fs.String("status", "", "Status")
	priority := fs.String("priority", "", "Priority")
	description := fs.StringP("description", "d", "", "Description")
	deadline := fs.String("deadline", "", "Deadline (date or RFC3339)")
	progress := fs.String("progress", "", "Progress (number)")

	return &Command{
		Flags: fs,
		Usage: "add-task <id> [flags]",
		Short: "Add a task to the catalog",
		Args:  ExactlyOne("task id"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			t := project.Task{
				ID:          args[0],
				Parent:      *parent,
				Title:       *title,
				Description: *description,
				Status:      *status,
				Priority:    *priority,
			}

			if *deadline != "" {
				d, ok := fields.ParseDate(*deadline)
				if !ok {
					return fmt.Errorf("%w: deadline %q is not a date", project.ErrInvalidValue, *deadline)
				}

				t.Deadline = &d
			}

			if *progress != "" {
				p, ok := fields.ParseNumber(*progress)
				if !ok {
					return fmt.Errorf("%w: progress %q is not a number", project.ErrInvalidValue, *progress)
				}

				t.Progress = &p
			}

			err := a.update(func(c *project.Catalog) error {
				return c.AddTask(t)
			})
			if err != nil {
				return err
			}

			o.Println(t.ID)

			return nil
		},
	}
}
