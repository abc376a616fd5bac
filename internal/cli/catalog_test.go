package cli_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jamsmac/MYDON-sub006/internal/cli"
)

func Test_Add_Field_Creates_Catalog_When_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	id := c.MustRun("add-field", "--name", "hours", "--type", "number")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("add-field printed %q, want a uuid: %v", id, err)
	}

	c.MustRun("add-field", "-n", "prio", "-t", "select", "-o", "hi:High:red", "-o", "lo")
	c.MustRun("add-field", "-n", "double", "-t", "formula", "-f", "{{hours}} * 2")
	c.MustRun("add-field", "-n", "total hours", "-t", "rollup", "--source", "hours", "--agg", "sum")

	var doc struct {
		Fields []struct {
			Name    string `json:"name"`
			Type    string `json:"type"`
			Options []struct {
				Value string `json:"value"`
				Label string `json:"label"`
				Color string `json:"color"`
			} `json:"options"`
		} `json:"fields"`
	}

	if err := json.Unmarshal([]byte(c.ReadFile("fields.json")), &doc); err != nil {
		t.Fatalf("catalog is not JSON: %v", err)
	}

	if got, want := len(doc.Fields), 4; got != want {
		t.Fatalf("fields=%d, want=%d", got, want)
	}

	prio := doc.Fields[1]
	if got, want := len(prio.Options), 2; got != want {
		t.Fatalf("options=%d, want=%d", got, want)
	}

	if prio.Options[0].Label != "High" || prio.Options[0].Color != "red" || prio.Options[1].Label != "lo" {
		t.Errorf("options=%+v", prio.Options)
	}
}

func Test_Add_Field_Rejects_Definition_When_Invalid(t *testing.T) {
	t.Parallel()

	c := newProject(t)
	before := c.ReadFile("fields.json")

	cases := []struct {
		args []string
		want string
	}{
		{args: []string{"-n", "budget", "-t", "number"}, want: "field already exists"},
		{args: []string{"-n", "x", "-t", "blob"}, want: "unknown field type"},
		{args: []string{"-t", "number"}, want: "name"},
		{args: []string{"-n", "x", "-t", "formula", "-f", "{{cost}} + 1"}, want: "invalid formula"},
		{args: []string{"-n", "x", "-t", "formula", "-f", "{{x}} + 1"}, want: "formula dependency cycle"},
		{args: []string{"-n", "x", "-t", "rollup", "--source", "cost", "--agg", "sum"}, want: "rollup source field not found"},
	}

	for _, tc := range cases {
		stderr := c.MustFail(append([]string{"add-field"}, tc.args...)...)
		cli.AssertContains(t, stderr, tc.want)
	}

	if got := c.ReadFile("fields.json"); got != before {
		t.Errorf("catalog changed after rejected add-field:\n%s", got)
	}
}

func Test_Add_Task_And_Set_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	if got, want := c.MustRun("add-task", "t4", "--title", "Ship", "-p", "epic", "--deadline", "2025-02-01", "--progress", "10"), "t4"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("set", "t4", "budget", "1200"), "t4.budget = 1200 USD"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("set", "t4", "prio", "Low"), "t4.prio = Low"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("rollup", "total budget"), "1550"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("set", "t4", "budget"), "t4.budget cleared"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("rollup", "total budget"), "350"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, c.MustFail("add-task", "t4"), "task already exists")
	cli.AssertContains(t, c.MustFail("add-task", "t5", "-p", "nope"), `parent "nope"`)
	cli.AssertContains(t, c.MustFail("add-task", "t5", "-p", "t5"), "task parent cycle")
	cli.AssertContains(t, c.MustFail("add-task", "t5", "--progress", "lots"), "invalid value")
	cli.AssertContains(t, c.MustFail("set", "t4", "hours", "many"), "invalid value")
	cli.AssertContains(t, c.MustFail("set", "t4", "rate", "3"), "computed and cannot be set")
	cli.AssertContains(t, c.MustFail("set", "t4", "prio", "urgent"), "not one of the field's options")
}

func Test_Show_Displays_Task_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)
	out := c.MustRun("show", "t1")

	for _, line := range []string{
		"id: t1",
		"title: Design",
		"parent: epic",
		"status: done",
		"deadline: 2025-01-15",
		"progress: 100",
		"# fields",
		"budget (currency): 100 USD",
		"rate (formula): 25",
		"prio (select): High",
		"total budget (rollup): 0",
	} {
		cli.AssertContains(t, out, line)
	}

	cli.AssertContains(t, c.MustRun("show", "t2"), "rate (formula): #DIV/0!")
	cli.AssertContains(t, c.MustFail("show", "ghost"), "task not found")
}

func Test_Filter_Applies_All_Rules_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	out := c.MustRun("filter", "-w", "prio equals high", "-w", "budget > 50")
	if got, want := out, "t1\tDesign"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	out = c.MustRun("filter", "-w", "total budget = 350")
	if got, want := out, "epic\tEpic"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	out = c.MustRun("filter", "--where", "rate is_empty")
	if got, want := out, "epic\tEpic\nt2\tBuild"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	if got := c.MustRun("filter"); strings.Count(got, "\n") != 3 {
		t.Errorf("filter without rules should list all 4 tasks:\n%s", got)
	}

	cli.AssertContains(t, c.MustFail("filter", "-w", "prio > 1"), "not allowed")
	cli.AssertContains(t, c.MustFail("filter", "-w", "cost > 1"), "field not found")
}

func Test_Rollup_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	cases := []struct {
		args []string
		want string
	}{
		{args: []string{"total budget"}, want: "350"},
		{args: []string{"total budget", "-t", "epic"}, want: "350"},
		{args: []string{"total budget", "-t", "t3"}, want: "0"},
		{args: []string{"hours", "--agg", "max"}, want: "10"},
		{args: []string{"prio", "--agg", "concat"}, want: "high, high, low"},
		{args: []string{"budget", "--agg", "average"}, want: "175"},
	}

	for _, tc := range cases {
		if got := c.MustRun(append([]string{"rollup"}, tc.args...)...); got != tc.want {
			t.Errorf("rollup %v=%q, want=%q", tc.args, got, tc.want)
		}
	}

	cli.AssertContains(t, c.MustFail("rollup", "budget"), "use --agg")
	cli.AssertContains(t, c.MustFail("rollup", "hours", "--agg", "median"), "median")
	cli.AssertContains(t, c.MustFail("rollup", "hours", "--agg", "sum", "-t", "epic"), "cannot be combined")

	stdout, stderr, exitCode := c.Run("rollup", "rate", "--agg", "sum")
	assertExit(t, exitCode, 1, stderr)
	cli.AssertContains(t, stdout, "#DIV/0!")
}

func Test_Export_Writes_Computed_Values_When_Invoked(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	stdout, stderr, exitCode := c.Run("--now", "2025-01-10", "export")
	assertExit(t, exitCode, 1, stderr)
	cli.AssertContains(t, stderr, "warning: task t2: field rate: #DIV/0!")

	var doc struct {
		GeneratedAt string `json:"generated_at"`
		Tasks       []struct {
			ID     string `json:"id"`
			Values map[string]struct {
				Type    string `json:"type"`
				Value   any    `json:"value"`
				Display string `json:"display"`
				Error   string `json:"error"`
			} `json:"values"`
		} `json:"tasks"`
	}

	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, stdout)
	}

	if got, want := doc.GeneratedAt, "2025-01-10"; got != want {
		t.Errorf("generated_at=%q, want=%q", got, want)
	}

	if got, want := len(doc.Tasks), 4; got != want {
		t.Fatalf("tasks=%d, want=%d", got, want)
	}

	epic := doc.Tasks[0].Values
	if got, want := epic["total budget"].Display, "350"; got != want {
		t.Errorf("epic total budget=%q, want=%q", got, want)
	}

	t1 := doc.Tasks[1].Values
	if got, want := t1["budget"].Display, "100 USD"; got != want {
		t.Errorf("t1 budget display=%q, want=%q", got, want)
	}

	if got, want := t1["rate"].Value, any(25.0); got != want {
		t.Errorf("t1 rate value=%v, want=%v", got, want)
	}

	if got, want := doc.Tasks[2].Values["rate"].Error, "#DIV/0!"; got != want {
		t.Errorf("t2 rate error=%q, want=%q", got, want)
	}

	if _, ok := doc.Tasks[2].Values["budget"]; ok {
		t.Error("empty values should be omitted")
	}
}

func Test_Export_To_File_When_Output_Given(t *testing.T) {
	t.Parallel()

	c := newProject(t)

	stdout, _, _ := c.Run("export", "-o", "report.json")
	cli.AssertContains(t, stdout, "exported 4 tasks to")
	cli.AssertContains(t, c.ReadFile("report.json"), `"generated_at"`)
}

func Test_Catalog_Commands_Read_Yaml_When_Catalog_Is_Yaml(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("plan.yaml", `
fields:
  - {id: f-h, name: hours, type: number}
  - {id: f-s, name: sum, type: rollup, rollup: {source_field: hours, aggregation: sum}}
tasks:
  - {id: p, title: Parent}
  - {id: a, parent: p, title: A}
  - {id: b, parent: p, title: B}
values:
  a: {hours: 3}
  b: {hours: 4.5}
`)

	if got, want := c.MustRun("--catalog", "plan.yaml", "rollup", "sum", "-t", "p"), "7.5"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}
