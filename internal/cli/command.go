package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one fx subcommand: its flags, help text, argument rule and body.
type Command struct {
	// Flags defines command-specific flags.
	Flags *flag.FlagSet

	// Usage is the string shown after "fx" in help: the command name
	// followed by its arguments, e.g. "eval <formula> [flags]".
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Examples are shown under the description in command help.
	Examples []string

	// Args checks the positional arguments left after flag parsing.
	// Nil accepts any arguments.
	Args ArgRule

	// Exec runs the command after flags and arguments are checked.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// ArgRule validates positional arguments. Its error is printed after the
// command name: "eval takes exactly one formula argument".
type ArgRule func(args []string) error

// NoArgs rejects any positional argument. hint, if set, is appended in
// parentheses.
func NoArgs(hint string) ArgRule {
	msg := "takes no arguments"
	if hint != "" {
		msg += " (" + hint + ")"
	}

	return func(args []string) error {
		if len(args) > 0 {
			return errors.New(msg)
		}

		return nil
	}
}

// ExactlyOne requires a single positional argument described by what.
func ExactlyOne(what string) ArgRule {
	return func(args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("takes exactly one %s", what)
		}

		return nil
	}
}

// AtLeast requires n positional arguments; what lists them for the error.
func AtLeast(n int, what string) ArgRule {
	return func(args []string) error {
		if len(args) < n {
			return fmt.Errorf("takes %s", what)
		}

		return nil
	}
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-34s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "fx <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: fx", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if len(c.Examples) > 0 {
		o.Println()
		o.Println("Examples:")

		for _, ex := range c.Examples {
			o.Println("  fx " + ex)
		}
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags, checks arguments and executes the command. Returns the
// exit code: 1 on error or when warnings were collected.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	rest := c.Flags.Args()

	if c.Args != nil {
		if err := c.Args(rest); err != nil {
			o.ErrPrintln("error:", c.Name(), err)
			o.ErrPrintln("usage: fx", c.Usage)

			return 1
		}
	}

	if err := c.Exec(ctx, o, rest); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return o.Finish()
}
