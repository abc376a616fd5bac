package project

import (
	"errors"
	"strings"
)

// Sentinel errors for catalog operations.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrFieldNotFound       = errors.New("field not found")
	ErrFieldExists         = errors.New("field already exists")
	ErrTaskExists          = errors.New("task already exists")
	ErrTaskIDRequired      = errors.New("task id is required")
	ErrTaskCycle           = errors.New("task parent cycle")
	ErrInvalidValue        = errors.New("invalid value")
	ErrDerivedValue        = errors.New("formula and rollup values are computed and cannot be set")
	ErrUnknownOption       = errors.New("value is not one of the field's options")
	ErrInvalidFormula      = errors.New("invalid formula")
	ErrFormulaCycle        = errors.New("formula dependency cycle")
	ErrRollupSourceMissing = errors.New("rollup source field not found")
	ErrCatalogInvalid      = errors.New("invalid catalog file")
	ErrLockTimeout         = errors.New("timed out waiting for catalog lock")
)

// Error carries the task and field a catalog operation failed on.
//
// The underlying message comes first, followed by the context:
//
//	invalid value: "abc" is not a number (task=t1 field=budget)
//
// Use [errors.Is] with the sentinels above and [errors.As] to read the
// context fields.
type Error struct {
	TaskID string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var parts []string

	if e.TaskID != "" {
		parts = append(parts, "task="+e.TaskID)
	}

	if e.Field != "" {
		parts = append(parts, "field="+e.Field)
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if len(parts) == 0 {
		return cause
	}

	suffix := "(" + strings.Join(parts, " ") + ")"
	if cause == "" {
		return suffix
	}

	return cause + " " + suffix
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// withContext attaches task/field context, filling blanks on an existing *Error.
func withContext(err error, taskID, field string) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.TaskID == "" {
			existing.TaskID = taskID
		}

		if existing.Field == "" {
			existing.Field = field
		}

		return existing
	}

	return &Error{TaskID: taskID, Field: field, Err: err}
}
