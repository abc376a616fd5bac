package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/formula"
)

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	taskID := fs.StringP("task", "t", "", "Start with this task selected")

	return &Command{
		Flags: fs,
		Usage: "shell [flags]",
		Short: "Interactive formula shell",
		Long: `Read formulas line by line and print their results against the selected
task. Tab completes function names and {{field}} references. Lines starting
with ':' are shell commands; type :help to list them. History is kept in
the configured history_file.`,
		Args: NoArgs(""),
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			c, err := project.Load(a.cfg.CatalogAbs)
			if errors.Is(err, os.ErrNotExist) {
				c, err = project.New(), nil
			}

			if err != nil {
				return err
			}

			s := &shell{a: a, o: o, catalog: c}

			if *taskID != "" {
				if err := s.selectTask(*taskID); err != nil {
					return err
				}
			}

			return s.run(ctx)
		},
	}
}

// prompter reads lines. liner.State satisfies it on a terminal; piped input
// uses a plain scanner.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type scanPrompter struct {
	sc *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return p.sc.Text(), nil
}

func (p *scanPrompter) AppendHistory(string) {}

func (p *scanPrompter) Close() error { return nil }

type shell struct {
	a       *app
	o       *IO
	catalog *project.Catalog
	task    string
}

func (s *shell) open() prompter {
	if f, ok := s.a.in.(*os.File); ok && f == os.Stdin {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		l.SetCompleter(s.complete)

		if path := s.a.cfg.HistoryAbs; path != "" {
			if f, err := os.Open(path); err == nil {
				_, _ = l.ReadHistory(f)
				_ = f.Close()
			}
		}

		return l
	}

	in := s.a.in
	if in == nil {
		in = strings.NewReader("")
	}

	return &scanPrompter{sc: bufio.NewScanner(in)}
}

func (s *shell) saveHistory(p prompter) {
	l, ok := p.(*liner.State)
	if !ok || s.a.cfg.HistoryAbs == "" {
		return
	}

	f, err := os.Create(s.a.cfg.HistoryAbs)
	if err != nil {
		s.o.Warn("cannot save shell history: "+err.Error(), "check history_file in the config")
		return
	}

	_, _ = l.WriteHistory(f)
	_ = f.Close()
}

func (s *shell) run(ctx context.Context) error {
	p := s.open()
	defer func() { _ = p.Close() }()

	for ctx.Err() == nil {
		line, err := p.Prompt(s.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p.AppendHistory(line)

		if s.handle(line) {
			break
		}
	}

	s.saveHistory(p)

	return nil
}

func (s *shell) prompt() string {
	if s.task == "" {
		return "fx> "
	}

	return "fx:" + s.task + "> "
}

// handle runs one line and reports whether the shell should exit.
func (s *shell) handle(line string) bool {
	if !strings.HasPrefix(line, ":") {
		s.eval(line)

		return false
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "q", "quit", "exit":
		return true
	case "help", "h", "?":
		s.printHelp()
	case "task":
		if arg == "" {
			s.task = ""
			s.o.Println("no task selected")

			break
		}

		if err := s.selectTask(arg); err != nil {
			s.o.Println("error:", err)
		}
	case "tasks":
		for _, t := range s.catalog.Tasks() {
			s.o.Printf("%s\t%s\n", t.ID, t.Title)
		}
	case "fields":
		for _, def := range s.catalog.Fields() {
			s.o.Printf("%s\t%s\n", def.Name, def.Type)
		}
	case "refs":
		for _, name := range formula.ExtractFieldRefs(arg) {
			s.o.Println(name)
		}
	case "validate":
		v := formula.Validate(arg, formula.WithKnownFields(s.catalog.FieldNames()...))
		if v.Valid {
			s.o.Println("ok")
		} else {
			s.o.Printf("%s: %s\n", v.Kind, v.Error)
		}
	default:
		s.o.Printf("unknown command :%s (type :help)\n", cmd)
	}

	return false
}

func (s *shell) selectTask(id string) error {
	if _, ok := s.catalog.Task(id); !ok {
		return errors.New("unknown task " + id)
	}

	s.task = id

	return nil
}

func (s *shell) eval(source string) {
	if s.task == "" {
		s.show(formula.Evaluate(source, formula.Context{Now: s.a.now, Fields: nullFields(s.catalog)}))

		return
	}

	r, err := s.catalog.Engine(s.a.now).Formula(s.task, source)
	if err != nil {
		s.o.Println("error:", err)
		return
	}

	s.show(r)
}

func (s *shell) show(r fields.Result) {
	if !r.OK {
		s.o.Printf("%s  (%s)\n", r.Display(), r.Error)
		return
	}

	s.o.Printf("%s  : %s\n", r.Display(), r.Type)
}

func (s *shell) printHelp() {
	s.o.Println("Enter a formula to evaluate it. Commands:")
	s.o.Println("  :task [id]         select a task (no id clears the selection)")
	s.o.Println("  :tasks             list tasks")
	s.o.Println("  :fields            list fields")
	s.o.Println("  :refs <formula>    list referenced fields")
	s.o.Println("  :validate <f>      check a formula")
	s.o.Println("  :quit              leave the shell")
}

// complete offers function names for the identifier under the cursor, and
// field names inside an open {{.
func (s *shell) complete(line string) []string {
	if i := strings.LastIndex(line, "{{"); i >= 0 && !strings.Contains(line[i:], "}}") {
		prefix := line[i+2:]

		var out []string

		for _, name := range s.catalog.FieldNames() {
			if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
				out = append(out, line[:i+2]+name+"}}")
			}
		}

		return out
	}

	start := len(line)
	for start > 0 {
		r := rune(line[start-1])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}

		start--
	}

	word := strings.ToUpper(line[start:])
	if word == "" {
		return nil
	}

	var out []string

	for _, sig := range formula.AvailableFunctions() {
		if strings.HasPrefix(sig.Name, word) {
			out = append(out, line[:start]+sig.Name+"(")
		}
	}

	return out
}

// nullFields lets formulas typed without a selected task reference catalog
// fields as null instead of failing with #REF!.
func nullFields(c *project.Catalog) map[string]fields.Value {
	out := make(map[string]fields.Value)
	for _, name := range c.FieldNames() {
		out[name] = fields.Null()
	}

	return out
}
