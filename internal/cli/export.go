package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

type exportDoc struct {
	GeneratedAt string                   `json:"generated_at"`
	Fields      []fields.FieldDefinition `json:"fields"`
	Tasks       []exportTask             `json:"tasks"`
}

type exportTask struct {
	ID       string                 `json:"id"`
	Parent   string                 `json:"parent,omitempty"`
	Title    string                 `json:"title"`
	Status   string                 `json:"status,omitempty"`
	Priority string                 `json:"priority,omitempty"`
	Deadline string                 `json:"deadline,omitempty"`
	Progress *float64               `json:"progress,omitempty"`
	Values   map[string]exportValue `json:"values"`
}

type exportValue struct {
	Type    string `json:"type,omitempty"`
	Value   any    `json:"value,omitempty"`
	Display string `json:"display,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExportCmd returns the export command.
func ExportCmd(a *app) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	output := fs.StringP("output", "o", "", "Write to `file` instead of stdout")

	return &Command{
		Flags: fs,
		Usage: "export [flags]",
		Short: "Export every task with computed field values as JSON",
		Long: `Write the evaluated view of the project: every task with every field,
formula and rollup results included, as JSON. With -o the file is replaced
atomically. Fields that fail to compute are exported with their error code
and reported as warnings.`,
		Args: NoArgs(""),
		Exec: func(_ context.Context, o *IO, _ []string) error {
			c, err := a.load()
			if err != nil {
				return err
			}

			doc := buildExport(o, c, a)

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}

			data = append(data, '\n')

			if *output == "" {
				o.Printf("%s", data)

				return nil
			}

			path := *output
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.cfg.EffectiveCwd, path)
			}

			if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			o.Printf("exported %d tasks to %s\n", len(doc.Tasks), path)

			return nil
		},
	}
}

func buildExport(o *IO, c *project.Catalog, a *app) exportDoc {
	doc := exportDoc{
		GeneratedAt: fields.Time(a.now).Display(),
		Fields:      c.Fields(),
		Tasks:       []exportTask{},
	}

	if doc.Fields == nil {
		doc.Fields = []fields.FieldDefinition{}
	}

	for _, row := range c.Engine(a.now).Rows() {
		t := row.Task
		et := exportTask{
			ID:       t.ID,
			Parent:   t.Parent,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
			Progress: t.Progress,
			Values:   make(map[string]exportValue, len(row.Cells)),
		}

		if t.Deadline != nil {
			et.Deadline = fields.Time(*t.Deadline).Display()
		}

		for _, cell := range row.Cells {
			r := cell.Result

			if !r.OK {
				et.Values[cell.Field.Name] = exportValue{Error: string(r.ErrorCode), Message: r.Error}
				o.Warn(fmt.Sprintf("task %s: field %s: %s %s", t.ID, cell.Field.Name, r.ErrorCode, r.Error),
					"fix the field's formula or the values it reads")

				continue
			}

			if r.Value.IsEmpty() {
				continue
			}

			et.Values[cell.Field.Name] = exportValue{
				Type:    r.Type,
				Value:   jsonValue(r.Value),
				Display: cell.Display(),
			}
		}

		doc.Tasks = append(doc.Tasks, et)
	}

	return doc
}

func jsonValue(v fields.Value) any {
	switch v.Kind() {
	case fields.KindString:
		s, _ := v.Str()
		return s
	case fields.KindNumber:
		n, _ := v.Num()
		return n
	case fields.KindBoolean:
		b, _ := v.Boolean()
		return b
	case fields.KindTimestamp:
		return v.Display()
	case fields.KindList:
		items, _ := v.Items()
		return items
	}

	return nil
}
