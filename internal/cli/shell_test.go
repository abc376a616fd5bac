package cli_test

import (
	"strings"
	"testing"

	"github.com/jamsmac/MYDON-sub006/internal/cli"
)

func Test_Shell_Evaluates_Lines_When_Input_Piped(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	input := strings.Join([]string{
		"1 + 2",
		"",
		"{{budget}}",
		":task t1",
		"{{rate}} * 2",
		":task ghost",
		":validate {{cost}}",
		":refs {{a}} & {{b}}",
		":fields",
		":bogus",
		"1 / 0",
		":quit",
		"99",
	}, "\n")

	stdout, stderr, exitCode := c.RunWithInput(input, "shell")
	assertExit(t, exitCode, 0, stderr)

	for _, want := range []string{
		"3  : number",
		"  : null",
		"50  : number",
		"error: unknown task ghost",
		"unknown_field: ",
		"a\nb\n",
		"prio\tselect",
		"unknown command :bogus",
		"#DIV/0!  (",
	} {
		cli.AssertContains(t, stdout, want)
	}

	cli.AssertNotContains(t, stdout, "99")
}

func Test_Shell_Starts_On_Task_When_Flag_Given(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	stdout, stderr, exitCode := c.RunWithInput("{{budget}} + 1\n:tasks\n", "shell", "-t", "t3")
	assertExit(t, exitCode, 0, stderr)

	cli.AssertContains(t, stdout, "251  : number")
	cli.AssertContains(t, stdout, "t2\tBuild")

	stderr = c.MustFail("shell", "-t", "ghost")
	cli.AssertContains(t, stderr, "unknown task ghost")
}

func Test_Shell_Works_When_Catalog_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout, stderr, exitCode := c.RunWithInput("UPPER(\"ok\")\n:help\n", "shell")
	assertExit(t, exitCode, 0, stderr)

	cli.AssertContains(t, stdout, "OK  : string")
	cli.AssertContains(t, stdout, ":validate <f>")
}
