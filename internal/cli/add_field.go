package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// AddFieldCmd returns the add-field command.
func AddFieldCmd(a *app) *Command {
	fs := flag.NewFlagSet("add-field", flag.ContinueOnError)
	name := fs.StringP("name", "n", "", "Field name (required)")
	typ := fs.StringP("type", "t", "", "Field type (required): "+typeList())
	formulaSrc := fs.StringP("formula", "f", "", "Formula (formula fields)")
	source := fs.String("source", "", "Source field (rollup fields)")
	agg := fs.String("agg", "", "Aggregation (rollup fields): sum, avg, count, min, max, concat")
	currency := fs.String("currency", "", "Currency code (currency fields)")
	options := fs.StringArrayP("option", "o", nil, "Option `value[:label[:color]]` (select fields, repeatable)")

	return &Command{
		Flags: fs,
		Usage: "add-field --name <n> --type <t> [flags]",
		Short: "Add a custom field to the catalog",
		Long: `Add a field definition. Formulas are validated and may only reference
existing fields; a formula that would depend on itself is rejected. Rollups
need --source and --agg. The catalog file is created if missing.`,
		Examples: []string{
			"add-field -n budget -t currency --currency USD",
			"add-field -n prio -t select -o high:High:red -o low:Low",
			"add-field -n rate -t formula -f '{{budget}} / {{hours}}'",
			"add-field -n 'total budget' -t rollup --source budget --agg sum",
		},
		Args: NoArgs(""),
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if strings.TrimSpace(*name) == "" {
				return fields.ErrFieldNameRequired
			}

			t, err := fields.ParseFieldType(*typ)
			if err != nil {
				return err
			}

			def := fields.FieldDefinition{
				Name:         strings.TrimSpace(*name),
				Type:         t,
				Formula:      *formulaSrc,
				CurrencyCode: *currency,
			}

			if *source != "" || *agg != "" {
				def.Rollup = &fields.RollupConfig{SourceField: *source, Aggregation: *agg}
			}

			for _, spec := range *options {
				def.Options = append(def.Options, parseOption(spec))
			}

			var added fields.FieldDefinition

			err = a.update(func(c *project.Catalog) error {
				var addErr error

				added, addErr = c.AddField(def)

				return addErr
			})
			if err != nil {
				return err
			}

			o.Println(added.ID)

			return nil
		},
	}
}

// parseOption reads "value[:label[:color]]". The label defaults to the value.
func parseOption(spec string) fields.Option {
	parts := strings.SplitN(spec, ":", 3)

	opt := fields.Option{Value: strings.TrimSpace(parts[0])}
	opt.Label = opt.Value

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		opt.Label = strings.TrimSpace(parts[1])
	}

	if len(parts) > 2 {
		opt.Color = strings.TrimSpace(parts[2])
	}

	return opt
}

func typeList() string {
	types := fields.AllFieldTypes()

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	return strings.Join(names, ", ")
}
