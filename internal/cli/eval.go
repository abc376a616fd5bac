package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/formula"
)

// EvalCmd returns the eval command.
func EvalCmd(a *app) *Command {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	taskID := fs.StringP("task", "t", "", "Evaluate against this task only")
	showType := fs.Bool("type", false, "Print the result type after the value")

	return &Command{
		Flags: fs,
		Usage: "eval <formula> [flags]",
		Short: "Evaluate a formula",
		Long: `Evaluate a formula against every task in the catalog, or against one task
with --task. Without a catalog (or without tasks) the formula is evaluated
once with no fields.

Failed results print their error code (#REF!, #ERROR!, #DIV/0!) and make
the exit code 1.`,
		Examples: []string{
			`eval '{{budget}} / {{hours}}'`,
			`--now 2025-03-10 eval -t t1 'DATEDIFF(TODAY(), deadline)'`,
		},
		Args: ExactlyOne("formula argument (quote it)"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execEval(o, a, args[0], *taskID, *showType)
		},
	}
}

func execEval(o *IO, a *app, source, taskID string, showType bool) error {
	c, err := project.Load(a.cfg.CatalogAbs)
	if errors.Is(err, os.ErrNotExist) && taskID == "" {
		c, err = project.New(), nil
	}

	if err != nil {
		return err
	}

	engine := c.Engine(a.now)

	if taskID != "" {
		r, err := engine.Formula(taskID, source)
		if err != nil {
			return err
		}

		printResult(o, "", r, showType)

		return nil
	}

	tasks := c.Tasks()
	if len(tasks) == 0 {
		r := formula.Evaluate(source, formula.Context{Now: a.now})
		printResult(o, "", r, showType)

		return nil
	}

	for _, t := range tasks {
		r, err := engine.Formula(t.ID, source)
		if err != nil {
			return err
		}

		printResult(o, t.ID, r, showType)
	}

	return nil
}

func printResult(o *IO, taskID string, r fields.Result, showType bool) {
	line := r.Display()

	if showType {
		kind := r.Type
		if !r.OK {
			kind = "error"
		}

		line += "\t" + kind
	}

	if taskID != "" {
		line = taskID + "\t" + line
	}

	if !r.OK {
		where := "formula"
		if taskID != "" {
			where = "task " + taskID
		}

		o.Warn(fmt.Sprintf("%s: %s %s", where, r.ErrorCode, r.Error), "fix the formula or the values it reads")
	}

	o.Println(line)
}
