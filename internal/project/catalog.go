// Package project is the caller-side glue around the evaluation core: it
// loads a project's field catalog, tasks and stored values from a HuJSON or
// YAML file, builds formula contexts, gathers rollup inputs, checks formula
// dependency cycles, materializes derived values for filtering and saves
// changes atomically.
package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/filter"
)

// DefaultFileName is the catalog file looked up when no path is configured.
const DefaultFileName = "fields.json"

// Task is a work item with its built-in attributes. Parent links a subtask
// to its parent; rollups on a task aggregate over its direct children.
type Task struct {
	ID          string
	Parent      string
	Title       string
	Description string
	Status      string
	Priority    string
	Deadline    *time.Time
	Progress    *float64
}

// Catalog is an in-memory project: field definitions, tasks and the stored
// values of non-derived fields. It is not safe for concurrent mutation.
type Catalog struct {
	fields []fields.FieldDefinition
	tasks  []Task
	values filter.ValuesIndex
}

// file is the on-disk shape. Values are keyed by task id, then field name,
// and hold plain JSON scalars or lists.
type file struct {
	Fields []fields.FieldDefinition              `json:"fields"`
	Tasks  []taskFile                            `json:"tasks"`
	Values map[string]map[string]json.RawMessage `json:"values,omitempty"`
}

type taskFile struct {
	ID          string   `json:"id"`
	Parent      string   `json:"parent,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
	Progress    *float64 `json:"progress,omitempty"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{values: filter.ValuesIndex{}}
}

// Load reads and parses the catalog at path. Files ending in .yaml or .yml
// are read as YAML, everything else as HuJSON.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	parse := Parse
	if IsYAML(path) {
		parse = ParseYAML
	}

	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Parse decodes a catalog from HuJSON (JSON with comments and trailing
// commas) and validates it.
func Parse(data []byte) (*Catalog, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, err)
	}

	var f file

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, err)
	}

	c := New()

	for _, def := range f.Fields {
		if err := c.addDefinition(def); err != nil {
			return nil, withContext(err, "", def.Name)
		}
	}

	for _, tf := range f.Tasks {
		task, err := tf.toTask()
		if err != nil {
			return nil, withContext(err, tf.ID, "")
		}

		if err := c.appendTask(task); err != nil {
			return nil, err
		}
	}

	if err := c.checkParents(); err != nil {
		return nil, err
	}

	taskIDs := make([]string, 0, len(f.Values))
	for id := range f.Values {
		taskIDs = append(taskIDs, id)
	}

	slices.Sort(taskIDs)

	for _, taskID := range taskIDs {
		if _, ok := c.Task(taskID); !ok {
			return nil, withContext(ErrTaskNotFound, taskID, "")
		}

		for name, raw := range f.Values[taskID] {
			def, ok := c.Field(name)
			if !ok {
				return nil, withContext(ErrFieldNotFound, taskID, name)
			}

			fv, err := decodeJSONValue(def, taskID, raw)
			if err != nil {
				return nil, withContext(err, taskID, name)
			}

			if !fv.IsEmpty() {
				c.values.Put(fv)
			}
		}
	}

	for _, def := range c.fields {
		if err := c.checkDerived(def); err != nil {
			return nil, withContext(err, "", def.Name)
		}
	}

	if err := CheckFormulaCycles(c.fields); err != nil {
		return nil, err
	}

	return c, nil
}

// IsYAML reports whether path names a YAML catalog.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}

	return false
}

// ParseYAML decodes a catalog written in YAML. The document has the same
// shape as the JSON form.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, err)
	}

	if doc == nil {
		doc = map[string]any{}
	}

	data, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogInvalid, err)
	}

	return Parse(data)
}

// jsonCompatible rewrites what yaml decodes into values encoding/json can
// marshal: maps with non-string keys and timestamps.
func jsonCompatible(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = jsonCompatible(item)
		}

		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}

		return out
	case []any:
		for i, item := range x {
			x[i] = jsonCompatible(item)
		}

		return x
	case time.Time:
		return fields.FormatTimestamp(x.UnixMilli())
	}

	return v
}

func (tf taskFile) toTask() (Task, error) {
	t := Task{
		ID:          tf.ID,
		Parent:      tf.Parent,
		Title:       tf.Title,
		Description: tf.Description,
		Status:      tf.Status,
		Priority:    tf.Priority,
		Progress:    tf.Progress,
	}

	if tf.Deadline != "" {
		d, ok := fields.ParseDate(tf.Deadline)
		if !ok {
			return Task{}, fmt.Errorf("%w: deadline %q is not a date", ErrInvalidValue, tf.Deadline)
		}

		t.Deadline = &d
	}

	return t, nil
}

// Marshal encodes the catalog as indented JSON, which is valid HuJSON.
func (c *Catalog) Marshal() ([]byte, error) {
	f := file{
		Fields: c.fields,
		Tasks:  make([]taskFile, 0, len(c.tasks)),
		Values: map[string]map[string]json.RawMessage{},
	}

	if f.Fields == nil {
		f.Fields = []fields.FieldDefinition{}
	}

	for _, t := range c.tasks {
		tf := taskFile{
			ID:          t.ID,
			Parent:      t.Parent,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Progress:    t.Progress,
		}

		if t.Deadline != nil {
			tf.Deadline = fields.FormatTimestamp(t.Deadline.UnixMilli())
		}

		f.Tasks = append(f.Tasks, tf)

		for _, def := range c.fields {
			fv := c.values.Get(def.ID, t.ID)
			if fv.IsEmpty() {
				continue
			}

			raw, err := encodeJSONValue(def, fv)
			if err != nil {
				return nil, withContext(err, t.ID, def.Name)
			}

			if f.Values[t.ID] == nil {
				f.Values[t.ID] = map[string]json.RawMessage{}
			}

			f.Values[t.ID][def.Name] = raw
		}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}

	return append(data, '\n'), nil
}

// Save writes the catalog to path atomically: readers see either the old or
// the new file, never a partial one. The output is always JSON, which YAML
// readers accept as well.
func Save(path string, c *Catalog) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	return nil
}

// Fields returns the field definitions in catalog order.
func (c *Catalog) Fields() []fields.FieldDefinition {
	return slices.Clone(c.fields)
}

// FieldNames returns every field name in catalog order.
func (c *Catalog) FieldNames() []string {
	names := make([]string, 0, len(c.fields))
	for _, def := range c.fields {
		names = append(names, def.Name)
	}

	return names
}

// Field looks a definition up by name.
func (c *Catalog) Field(name string) (fields.FieldDefinition, bool) {
	for _, def := range c.fields {
		if def.Name == name {
			return def, true
		}
	}

	return fields.FieldDefinition{}, false
}

// FieldsIndex returns the definitions keyed by id, as the filter engine
// consumes them.
func (c *Catalog) FieldsIndex() filter.FieldsIndex {
	idx := make(filter.FieldsIndex, len(c.fields))
	for _, def := range c.fields {
		idx[def.ID] = def
	}

	return idx
}

// Tasks returns the tasks in catalog order.
func (c *Catalog) Tasks() []Task {
	return slices.Clone(c.tasks)
}

// Task looks a task up by id.
func (c *Catalog) Task(id string) (Task, bool) {
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}

	return Task{}, false
}

// AddTask appends a task. Ids must be unique and a parent, if set, must
// already be in the catalog.
func (c *Catalog) AddTask(t Task) error {
	if t.Parent != "" {
		if t.Parent == t.ID {
			return withContext(fmt.Errorf("%w: %s is its own parent", ErrTaskCycle, t.ID), t.ID, "")
		}

		if _, ok := c.Task(t.Parent); !ok {
			return withContext(fmt.Errorf("parent %q: %w", t.Parent, ErrTaskNotFound), t.ID, "")
		}
	}

	return c.appendTask(t)
}

func (c *Catalog) appendTask(t Task) error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrTaskIDRequired
	}

	if _, ok := c.Task(t.ID); ok {
		return withContext(ErrTaskExists, t.ID, "")
	}

	c.tasks = append(c.tasks, t)

	return nil
}

// Stored returns the stored value of field name on task, or nil.
func (c *Catalog) Stored(taskID, name string) *fields.FieldValue {
	def, ok := c.Field(name)
	if !ok {
		return nil
	}

	return c.values.Get(def.ID, taskID)
}

// checkParents verifies every parent link resolves and no task is its own
// ancestor. Parse needs it because a file may list children before parents.
func (c *Catalog) checkParents() error {
	parentOf := make(map[string]string, len(c.tasks))
	for _, t := range c.tasks {
		parentOf[t.ID] = t.Parent
	}

	for _, t := range c.tasks {
		if t.Parent == "" {
			continue
		}

		if _, ok := parentOf[t.Parent]; !ok {
			return withContext(fmt.Errorf("parent %q: %w", t.Parent, ErrTaskNotFound), t.ID, "")
		}

		path := []string{t.ID}
		seen := map[string]bool{t.ID: true}

		for id := t.Parent; id != ""; id = parentOf[id] {
			path = append(path, id)
			if seen[id] {
				return withContext(fmt.Errorf("%w: %s", ErrTaskCycle, strings.Join(path, " -> ")), t.ID, "")
			}

			seen[id] = true
		}
	}

	return nil
}

func (c *Catalog) children(taskID string) []Task {
	var out []Task

	for _, t := range c.tasks {
		if t.Parent == taskID {
			out = append(out, t)
		}
	}

	return out
}
