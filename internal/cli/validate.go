package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/formula"
)

// ErrInvalidFormula is returned by validate for a formula with problems.
var ErrInvalidFormula = errors.New("invalid formula")

// ValidateCmd returns the validate command.
func ValidateCmd(a *app) *Command {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	noFields := fs.Bool("no-fields", false, "Do not check field references against the catalog")

	return &Command{
		Flags: fs,
		Usage: "validate <formula> [flags]",
		Short: "Check a formula without evaluating it",
		Long: `Check syntax, function names, argument counts and field references.
References are checked against the catalog's fields when a catalog exists.

Problems are reported as one of: syntax, unbalanced, unknown_function,
arity, unknown_field.`,
		Args: ExactlyOne("formula argument (quote it)"),
		Exec: func(_ context.Context, o *IO, args []string) error {
			var opts []formula.ValidateOption

			if !*noFields {
				c, err := project.Load(a.cfg.CatalogAbs)
				switch {
				case err == nil:
					opts = append(opts, formula.WithKnownFields(c.FieldNames()...))
				case !errors.Is(err, os.ErrNotExist):
					return err
				}
			}

			v := formula.Validate(args[0], opts...)
			if !v.Valid {
				return fmt.Errorf("%w: %s: %s", ErrInvalidFormula, v.Kind, v.Error)
			}

			o.Println("ok")

			return nil
		},
	}
}
