package cli_test

import (
	"testing"

	"github.com/jamsmac/MYDON-sub006/internal/cli"
)

// projectCatalog is an epic with three subtasks. t2 has zero hours, so its
// rate divides by zero.
const projectCatalog = `{
  "fields": [
    {"id": "f-budget", "name": "budget", "type": "currency", "currency_code": "USD"},
    {"id": "f-hours", "name": "hours", "type": "number"},
    {"id": "f-rate", "name": "rate", "type": "formula", "formula": "{{budget}} / {{hours}}"},
    {"id": "f-prio", "name": "prio", "type": "select", "options": [
      {"value": "high", "label": "High"},
      {"value": "low", "label": "Low"},
    ]},
    {"id": "f-total", "name": "total budget", "type": "rollup",
     "rollup": {"source_field": "budget", "aggregation": "sum"}},
  ],
  "tasks": [
    {"id": "epic", "title": "Epic"},
    {"id": "t1", "parent": "epic", "title": "Design", "status": "done", "deadline": "2025-01-15", "progress": 100},
    {"id": "t2", "parent": "epic", "title": "Build"},
    {"id": "t3", "parent": "epic", "title": "Test"},
  ],
  "values": {
    "t1": {"budget": 100, "hours": 4, "prio": "high"},
    "t2": {"hours": 0, "prio": "high"},
    "t3": {"budget": 250, "hours": 10, "prio": "low"},
  },
}
`

func newProject(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t)
	c.WriteFile("fields.json", projectCatalog)

	return c
}

func assertExit(t *testing.T, got, want int, stderr string) {
	t.Helper()

	if got != want {
		t.Errorf("exitCode=%d, want=%d\nstderr: %s", got, want, stderr)
	}
}
