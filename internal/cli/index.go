package cli

import (
	"context"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/index"
)

// IndexCmd returns the index command.
func IndexCmd(a *app) *Command {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	output := fs.StringP("output", "o", "fields.db", "SQLite database `file` to (re)build")

	return &Command{
		Flags: fs,
		Usage: "index [flags]",
		Short: "Build a SQLite index of tasks and computed values",
		Long: `Rebuild a SQLite database with tables tasks, fields and field_values
holding every stored and computed value, for ad-hoc SQL queries. The
database is derived data and is rebuilt from scratch each time.`,
		Args: NoArgs(""),
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}

			path := *output
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.cfg.EffectiveCwd, path)
			}

			db, err := index.Open(ctx, path)
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			n, err := index.Rebuild(ctx, db, c.Fields(), c.Engine(a.now).Rows())
			if err != nil {
				return err
			}

			o.Printf("indexed %d values to %s\n", n, path)

			return nil
		},
	}
}
