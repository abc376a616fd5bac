package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/pkg/filter"
)

// FilterCmd returns the filter command.
func FilterCmd(a *app) *Command {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	where := fs.StringArrayP("where", "w", nil, "Rule `\"field operator [value]\"` (repeatable, all must match)")

	return &Command{
		Flags: fs,
		Usage: "filter --where <rule>... [flags]",
		Short: "List tasks whose fields match every rule",
		Long: `List the tasks that satisfy every --where rule. A rule is a field name, an
operator and, for comparing operators, a value. Run "fx operators" for the operators each field type accepts. Formula and
rollup fields are computed before filtering.`,
		Examples: []string{
			`filter -w 'budget > 100' -w 'priority equals high'`,
			`filter -w 'notes is_empty'`,
		},
		Args: NoArgs("use --where"),
		Exec: func(_ context.Context, o *IO, _ []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}

			rules := make([]filter.Rule, 0, len(*where))

			for _, expr := range *where {
				rule, err := c.ParseRule(expr)
				if err != nil {
					return err
				}

				rules = append(rules, rule)
			}

			for _, t := range c.Engine(a.now).Filter(rules) {
				o.Printf("%s\t%s\n", t.ID, t.Title)
			}

			return nil
		},
	}
}
