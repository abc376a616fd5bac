package project

import (
	"fmt"
	"time"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/filter"
	"github.com/jamsmac/MYDON-sub006/pkg/formula"
	"github.com/jamsmac/MYDON-sub006/pkg/rollup"
)

// Engine computes formula and rollup fields of one catalog at a fixed clock.
// Results are memoized per (field, task), so an Engine must not outlive a
// change to the catalog.
type Engine struct {
	c        *Catalog
	now      time.Time
	memo     map[filter.ValueKey]fields.Result
	visiting map[filter.ValueKey]bool
}

// Engine returns an evaluator reading the catalog's current state. now is the
// clock seen by TODAY() and NOW().
func (c *Catalog) Engine(now time.Time) *Engine {
	return &Engine{
		c:        c,
		now:      now,
		memo:     make(map[filter.ValueKey]fields.Result),
		visiting: make(map[filter.ValueKey]bool),
	}
}

// Value returns the value of a field on a task: the stored value for input
// fields, the computed result for formula and rollup fields.
func (e *Engine) Value(taskID, fieldName string) (fields.Result, error) {
	task, ok := e.c.Task(taskID)
	if !ok {
		return fields.Result{}, withContext(ErrTaskNotFound, taskID, "")
	}

	def, ok := e.c.Field(fieldName)
	if !ok {
		return fields.Result{}, withContext(ErrFieldNotFound, taskID, fieldName)
	}

	return e.field(task, def), nil
}

// Formula evaluates an ad-hoc formula against a task, as if it were a
// formula field on that task.
func (e *Engine) Formula(taskID, source string) (fields.Result, error) {
	task, ok := e.c.Task(taskID)
	if !ok {
		return fields.Result{}, withContext(ErrTaskNotFound, taskID, "")
	}

	return e.formula(task, source), nil
}

// context builds the evaluation context for source on a task. Input fields
// carry their stored values. Formula and rollup fields the source references
// are computed first; the rest read as null. When a referenced field fails,
// its failed result is returned alongside.
func (e *Engine) context(task Task, source string) (formula.Context, fields.Result) {
	referenced := make(map[string]bool)
	for _, name := range formula.ExtractFieldRefs(source) {
		referenced[name] = true
	}

	ctx := formula.Context{
		Task:   task.attributes(),
		Fields: make(map[string]fields.Value, len(e.c.fields)),
		Now:    e.now,
	}

	for _, def := range e.c.fields {
		if !def.Type.IsDerived() {
			ctx.Fields[def.Name] = e.c.values.Get(def.ID, task.ID).ToValue(def.Type)
			continue
		}

		if !referenced[def.Name] {
			ctx.Fields[def.Name] = fields.Null()
			continue
		}

		r := e.field(task, def)
		if !r.OK {
			return ctx, r
		}

		ctx.Fields[def.Name] = r.Value
	}

	return ctx, fields.Success(fields.Null())
}

func (e *Engine) formula(task Task, source string) fields.Result {
	ctx, failed := e.context(task, source)
	if !failed.OK {
		return failed
	}

	return formula.Evaluate(source, ctx)
}

func (e *Engine) field(task Task, def fields.FieldDefinition) fields.Result {
	key := filter.ValueKey{FieldID: def.ID, TaskID: task.ID}

	if r, ok := e.memo[key]; ok {
		return r
	}

	if e.visiting[key] {
		return fields.Failure(fields.ErrCodeError, fmt.Sprintf("circular reference through %q", def.Name))
	}

	e.visiting[key] = true
	defer delete(e.visiting, key)

	var r fields.Result

	switch def.Type {
	case fields.TypeFormula:
		r = e.formula(task, def.Formula)
	case fields.TypeRollup:
		r = e.rollup(e.c.children(task.ID), def)
	default:
		r = fields.Success(e.c.values.Get(def.ID, task.ID).ToValue(def.Type))
	}

	e.memo[key] = r

	return r
}

// rollup gathers the source field over tasks and reduces it. A failed source
// value (a broken formula on one child) fails the whole rollup.
func (e *Engine) rollup(tasks []Task, def fields.FieldDefinition) fields.Result {
	agg, err := rollup.ParseAggregation(def.Rollup.Aggregation)
	if err != nil {
		return fields.Failure(fields.ErrCodeError, err.Error())
	}

	src, ok := e.c.Field(def.Rollup.SourceField)
	if !ok {
		return fields.Failure(fields.ErrCodeRef, fmt.Sprintf("unknown field %q", def.Rollup.SourceField))
	}

	values := make([]fields.Value, 0, len(tasks))

	for _, t := range tasks {
		r := e.field(t, src)
		if !r.OK {
			return r
		}

		values = append(values, r.Value)
	}

	return rollup.Evaluate(agg, values)
}

// ProjectRollup computes a rollup field over every task in the project
// rather than one task's children.
func (e *Engine) ProjectRollup(fieldName string) (fields.Result, error) {
	def, ok := e.c.Field(fieldName)
	if !ok {
		return fields.Result{}, withContext(ErrFieldNotFound, "", fieldName)
	}

	if def.Type != fields.TypeRollup {
		return fields.Result{}, withContext(fmt.Errorf("%w: %s is a %s field, not rollup", ErrInvalidValue, fieldName, def.Type), "", fieldName)
	}

	return e.rollup(e.c.tasks, def), nil
}

// Aggregate reduces an arbitrary field over every task in the project.
func (e *Engine) Aggregate(fieldName string, agg rollup.Aggregation) (fields.Result, error) {
	def, ok := e.c.Field(fieldName)
	if !ok {
		return fields.Result{}, withContext(ErrFieldNotFound, "", fieldName)
	}

	values := make([]fields.Value, 0, len(e.c.tasks))

	for _, t := range e.c.tasks {
		r := e.field(t, def)
		if !r.OK {
			return r, nil
		}

		values = append(values, r.Value)
	}

	return rollup.Evaluate(agg, values), nil
}

// Cell is one field of one task in an evaluated view.
type Cell struct {
	Field  fields.FieldDefinition
	Result fields.Result
	Stored *fields.FieldValue
}

// Display renders the cell: the error code or computed value for derived
// fields, the formatted stored value otherwise.
func (c Cell) Display() string {
	if c.Field.Type.IsDerived() {
		return c.Result.Display()
	}

	return FormatValue(c.Field, c.Stored)
}

// Row is a task together with every field evaluated on it.
type Row struct {
	Task  Task
	Cells []Cell
}

// Row evaluates every field on one task.
func (e *Engine) Row(taskID string) (Row, error) {
	task, ok := e.c.Task(taskID)
	if !ok {
		return Row{}, withContext(ErrTaskNotFound, taskID, "")
	}

	return e.row(task), nil
}

func (e *Engine) row(task Task) Row {
	row := Row{Task: task, Cells: make([]Cell, 0, len(e.c.fields))}

	for _, def := range e.c.fields {
		row.Cells = append(row.Cells, Cell{
			Field:  def,
			Result: e.field(task, def),
			Stored: e.c.values.Get(def.ID, task.ID),
		})
	}

	return row
}

// Rows evaluates every field on every task, in catalog order.
func (e *Engine) Rows() []Row {
	rows := make([]Row, 0, len(e.c.tasks))
	for _, t := range e.c.tasks {
		rows = append(rows, e.row(t))
	}

	return rows
}

// Filter returns the tasks that pass every rule. Formula and rollup fields
// named by a rule are computed and materialized first so the filter engine
// sees them as stored text.
func (e *Engine) Filter(rules []filter.Rule) []Task {
	defs := e.c.FieldsIndex()
	values := make(filter.ValuesIndex, len(e.c.values))

	for k, v := range e.c.values {
		values[k] = v
	}

	for _, rule := range rules {
		def, ok := defs[rule.FieldID]
		if !ok || !def.Type.IsDerived() {
			continue
		}

		for _, t := range e.c.tasks {
			values.Put(fields.Materialize(def.ID, t.ID, e.field(t, def)))
		}
	}

	var out []Task

	for _, t := range e.c.tasks {
		if filter.TaskPassesAllFilters(rules, t.ID, values, defs) {
			out = append(out, t)
		}
	}

	return out
}

func (t Task) attributes() formula.Task {
	return formula.Task{
		Status:      t.Status,
		Priority:    t.Priority,
		Deadline:    t.Deadline,
		Progress:    t.Progress,
		Title:       t.Title,
		Description: t.Description,
	}
}
