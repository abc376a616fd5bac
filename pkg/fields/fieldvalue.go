package fields

import "time"

// FieldValue is the stored value of one field on one task. At most one slot
// is populated; which one depends on the field type. A FieldValue with no
// populated slot is empty.
//
// Formula and rollup fields are never entered by users. Callers that filter
// on them materialize the computed result into Text (see [Materialize]).
type FieldValue struct {
	FieldID string     `json:"field_id"`
	TaskID  string     `json:"task_id"`
	Text    *string    `json:"text,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
	Bool    *bool      `json:"bool,omitempty"`
	List    []string   `json:"list,omitempty"`
}

// IsEmpty reports whether no slot is populated. An empty list counts as
// unpopulated.
func (fv *FieldValue) IsEmpty() bool {
	if fv == nil {
		return true
	}

	return fv.Text == nil && fv.Number == nil && fv.Date == nil && fv.Bool == nil && len(fv.List) == 0
}

// ToValue converts the stored slot for a field of type t into a [Value].
// Only the slot that belongs to t is consulted; a value stored in the wrong
// slot reads as null.
func (fv *FieldValue) ToValue(t FieldType) Value {
	if fv == nil {
		return Null()
	}

	switch t {
	case TypeNumber, TypeCurrency, TypePercent, TypeRating:
		if fv.Number == nil {
			return Null()
		}

		return Number(*fv.Number)
	case TypeCheckbox:
		if fv.Bool == nil {
			return Null()
		}

		return Bool(*fv.Bool)
	case TypeDate:
		if fv.Date == nil {
			return Null()
		}

		return Time(*fv.Date)
	case TypeMultiselect:
		if fv.List == nil {
			return Null()
		}

		return List(fv.List)
	case TypeText, TypeURL, TypeEmail, TypeSelect, TypeFormula, TypeRollup:
		if fv.Text == nil {
			return Null()
		}

		return Text(*fv.Text)
	}

	return Null()
}

// Materialize builds the stored representation of a computed formula or
// rollup result: the display string in the text slot, or an empty value for
// null and error results.
func Materialize(fieldID, taskID string, r Result) FieldValue {
	fv := FieldValue{FieldID: fieldID, TaskID: taskID}
	if !r.OK || r.Value.IsNull() {
		return fv
	}

	s := r.Value.Display()
	fv.Text = &s

	return fv
}
