package cli_test

import (
	"testing"

	"github.com/jamsmac/MYDON-sub006/internal/cli"
)

func Test_Eval_Without_Catalog_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got, want := c.MustRun("eval", `"a" & (1 + 2) * 2`), "a6"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("eval", "--type", "ROUND(10 / 4, 1)"), "2.5\tnumber"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Uses_Now_Flag_When_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	out := c.MustRun("--now", "2025-03-10T14:30:00Z", "eval", "--type", "TODAY()")

	if got, want := out, "2025-03-10\ttimestamp"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Reports_Error_Code_When_Formula_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("eval", "--type", "1 / 0")

	assertExit(t, exitCode, 1, stderr)

	if got, want := stdout, "#DIV/0!\terror\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "warning: formula: #DIV/0!")
}

func Test_Eval_Every_Task_When_Catalog_Exists(t *testing.T) {
	t.Parallel()

	c := newProject(t)
	out := c.MustRun("eval", "{{hours}} * 2")

	if got, want := out, "epic\t0\nt1\t8\nt2\t0\nt3\t20"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Single_Task_When_Task_Flag_Given(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	if got, want := c.MustRun("eval", "-t", "t3", "{{rate}} + progress"), "25"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	out := c.MustRun("--now", "2025-01-10", "eval", "-t", "t1", `IF(status = "done", DATEDIFF(TODAY(), deadline), -1)`)
	if got, want := out, "5"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	stdout, stderr, exitCode := c.Run("eval", "-t", "t2", "{{rate}}")
	assertExit(t, exitCode, 1, stderr)
	cli.AssertContains(t, stdout, "#DIV/0!")
	cli.AssertContains(t, stderr, "task t2: #DIV/0!")

	stderr = c.MustFail("eval", "-t", "ghost", "1")
	cli.AssertContains(t, stderr, "task not found")
}

func Test_Eval_Fails_When_Argument_Count_Wrong(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("eval", "1", "+", "2")
	cli.AssertContains(t, stderr, "exactly one formula argument")
}

func Test_Validate_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	if got, want := c.MustRun("validate", "{{budget}} * 1.2"), "ok"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	stderr := c.MustFail("validate", "{{cost}} * 1.2")
	cli.AssertContains(t, stderr, "invalid formula: unknown_field")

	if got, want := c.MustRun("validate", "--no-fields", "{{cost}} * 1.2"), "ok"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	stderr = c.MustFail("validate", "1 + FROB(2)")
	cli.AssertContains(t, stderr, "unknown_function")
	cli.AssertContains(t, stderr, "position 5")
}

func Test_Refs_Lists_First_Occurrence_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got, want := c.MustRun("refs", "{{b}} + {{a}} * {{b}}"), "b\na"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Functions_Filters_Category_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	all := c.MustRun("functions")
	for _, heading := range []string{"# conditional", "# date", "# math", "# string"} {
		cli.AssertContains(t, all, heading)
	}

	math := c.MustRun("functions", "--category", "MATH")
	cli.AssertContains(t, math, "ROUND(x, [digits])")
	cli.AssertNotContains(t, math, "# date")

	stderr := c.MustFail("functions", "--category", "crypto")
	cli.AssertContains(t, stderr, `no functions in category "crypto"`)
}

func Test_Operators_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	all := c.MustRun("operators")
	cli.AssertContains(t, all, "checkbox     is_true, is_false")
	cli.AssertContains(t, all, "date         equals, before, after, is_empty, is_not_empty")

	rating := c.MustRun("operators", "rating")
	cli.AssertContains(t, rating, "greater_or_equal")
	cli.AssertContains(t, rating, "<value>")
	cli.AssertNotContains(t, rating, "is_empty")

	stderr := c.MustFail("operators", "blob")
	cli.AssertContains(t, stderr, "unknown field type")
}
