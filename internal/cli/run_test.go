package cli_test

import (
	"bytes"
	"testing"

	"github.com/jamsmac/MYDON-sub006/internal/cli"
)

func Test_Bare_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	// Call Run directly without test helper (which adds --cwd)
	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"fx"}, nil, nil)

	assertExit(t, exitCode, 0, stderr.String())

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout.String(), "fx - typed custom fields")
	cli.AssertContains(t, stdout.String(), "--cwd")
	cli.AssertContains(t, stdout.String(), "eval <formula>")
	cli.AssertContains(t, stdout.String(), "filter --where")
}

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "eval", "1")

	assertExit(t, exitCode, 1, stderr)

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--catalog")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "rollup <field>")
}

func Test_Now_Flag_Rejects_Garbage_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--now", "yesterday-ish", "eval", "TODAY()")

	cli.AssertContains(t, stderr, "--now: not a date or time")
}

func Test_Command_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	out := c.MustRun("set", "--help")

	cli.AssertContains(t, out, "Usage: fx set <task> <field> [value...]")
	cli.AssertContains(t, out, "Omit the value")
}

func Test_Read_Commands_Fail_When_Catalog_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	for _, args := range [][]string{
		{"show", "t1"},
		{"filter", "-w", "a > 1"},
		{"rollup", "total"},
		{"export"},
		{"index"},
	} {
		stderr := c.MustFail(args...)
		cli.AssertContains(t, stderr, "catalog not found")
		cli.AssertContains(t, stderr, "fx add-field")
	}
}

func Test_Command_Rejects_Arguments_When_Count_Wrong(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("show")
	cli.AssertContains(t, stderr, "error: show takes exactly one task id")
	cli.AssertContains(t, stderr, "usage: fx show <task>")

	stderr = c.MustFail("filter", "budget > 1")
	cli.AssertContains(t, stderr, "filter takes no arguments (use --where)")

	stderr = c.MustFail("set", "t1")
	cli.AssertContains(t, stderr, "set takes a task id, a field name and a value")
}

func Test_Command_Help_Lists_Examples_When_Present(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	out := c.MustRun("filter", "--help")

	cli.AssertContains(t, out, "Examples:")
	cli.AssertContains(t, out, "fx filter -w 'notes is_empty'")
	cli.AssertContains(t, out, "--where")
}
