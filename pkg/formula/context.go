package formula

import (
	"time"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// Task holds the built-in attributes of a work item that formulas can read
// as bare identifiers (status, priority, deadline, progress, title,
// description). Nil pointers read as null.
type Task struct {
	Status      string
	Priority    string
	Deadline    *time.Time
	Progress    *float64
	Title       string
	Description string
}

// Context is the read-only input of one evaluation.
//
// Fields maps custom-field names to values. A name present with a null value
// is a field that exists but is unset on this task; a name absent from the map
// is a field that does not exist, and referencing it yields #REF!.
//
// Now is the clock read by TODAY() and NOW(). Passing it in keeps evaluation
// deterministic for a given (source, context) pair.
type Context struct {
	Task   Task
	Fields map[string]fields.Value
	Now    time.Time
}

func (c *Context) attribute(name string) fields.Value {
	switch name {
	case AttrStatus:
		return textOrNull(c.Task.Status)
	case AttrPriority:
		return textOrNull(c.Task.Priority)
	case AttrTitle:
		return textOrNull(c.Task.Title)
	case AttrDescription:
		return textOrNull(c.Task.Description)
	case AttrDeadline:
		if c.Task.Deadline == nil {
			return fields.Null()
		}

		return fields.Time(*c.Task.Deadline)
	case AttrProgress:
		if c.Task.Progress == nil {
			return fields.Null()
		}

		return fields.Number(*c.Task.Progress)
	}

	return fields.Null()
}

func textOrNull(s string) fields.Value {
	if s == "" {
		return fields.Null()
	}

	return fields.Text(s)
}
