package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/config"
	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// ErrCatalogNotFound is returned by read-only commands when the catalog file
// does not exist yet.
var ErrCatalogNotFound = errors.New("catalog not found")

// app is the state shared by all commands of one invocation.
type app struct {
	cfg config.Config
	now time.Time
	in  io.Reader
}

// load reads the catalog for a read-only command.
func (a *app) load() (*project.Catalog, error) {
	c, err := project.Load(a.cfg.CatalogAbs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (create it with fx add-field)", ErrCatalogNotFound, a.cfg.CatalogAbs)
	}

	return c, err
}

// update runs fn under the catalog lock and saves the result.
func (a *app) update(fn func(c *project.Catalog) error) error {
	return project.Update(a.cfg.CatalogAbs, a.cfg.Timeout, fn)
}

func (a *app) commands() []*Command {
	return []*Command{
		EvalCmd(a),
		ValidateCmd(a),
		RefsCmd(a),
		FunctionsCmd(),
		OperatorsCmd(),
		RollupCmd(a),
		FilterCmd(a),
		ShowCmd(a),
		AddFieldCmd(a),
		AddTaskCmd(a),
		SetCmd(a),
		ExportCmd(a),
		IndexCmd(a),
		ShellCmd(a),
		PrintConfigCmd(&a.cfg),
	}
}

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh cancels the context passed to the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	globals := flag.NewFlagSet("fx", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use the specified config `file`")
	catalog := globals.String("catalog", "", "Catalog `file` (overrides config)")
	nowFlag := globals.String("now", "", "Evaluate as if the clock read `time` (date or RFC3339)")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) < 2 {
		printUsage(out, nil)
		return 0
	}

	if err := globals.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 || rest[0] == "help" {
		printUsage(out, nil)
		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDir:         *workDir,
		ConfigPath:      *configPath,
		CatalogOverride: *catalog,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	now := time.Now().UTC()

	if *nowFlag != "" {
		t, ok := fields.ParseDate(*nowFlag)
		if !ok {
			fprintln(errOut, "error: --now: not a date or time:", *nowFlag)
			return 1
		}

		now = t
	}

	a := &app{cfg: cfg, now: now, in: in}
	commands := a.commands()

	for _, cmd := range commands {
		if cmd.Name() == rest[0] {
			return cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])
		}
	}

	fprintln(errOut, "error: unknown command:", rest[0])
	printUsage(errOut, commands)

	return 1
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*Command) {
	if commands == nil {
		commands = (&app{}).commands()
	}

	fprintln(w, `fx - typed custom fields, formulas, rollups and filters

Usage: fx [options] <command> [args]

Options:
  -C, --cwd <dir>       Run as if started in <dir>
  -c, --config <file>   Use specified config file
      --catalog <file>  Use specified catalog file
      --now <time>      Evaluate as if the clock read <time>

Commands:`)

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
