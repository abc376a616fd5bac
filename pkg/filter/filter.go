// Package filter decides whether tasks match filter rules over their custom
// field values.
//
// A [Rule] can only be built for an operator registered for the field's type
// (see [fields.OperatorsFor]), so evaluation never meets an undefined
// combination in practice. Should one arrive anyway, the rule passes rather
// than hiding the task.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// ErrOperatorNotAllowed is returned when an operator is not registered for
// the field type.
var ErrOperatorNotAllowed = errors.New("operator not allowed for field type")

// ErrOperandRequired is returned when an operator that compares gets no operand.
var ErrOperandRequired = errors.New("operator requires a value")

// Rule is one (field, operator, operand) predicate.
type Rule struct {
	FieldID  string
	Operator fields.Operator
	Operand  string
}

// NewRule builds a rule for def, rejecting operators not registered for its
// type and comparing operators without an operand.
func NewRule(def fields.FieldDefinition, op fields.Operator, operand string) (Rule, error) {
	if !fields.IsOperatorAllowed(def.Type, op) {
		return Rule{}, fmt.Errorf("%w: %s on %s field %q", ErrOperatorNotAllowed, op, def.Type, def.Name)
	}

	if op.NeedsOperand() && strings.TrimSpace(operand) == "" {
		return Rule{}, fmt.Errorf("%w: %s on field %q", ErrOperandRequired, op, def.Name)
	}

	return Rule{FieldID: def.ID, Operator: op, Operand: operand}, nil
}

// MustRule is [NewRule] for rules known to be valid. It panics otherwise.
func MustRule(def fields.FieldDefinition, op fields.Operator, operand string) Rule {
	r, err := NewRule(def, op, operand)
	if err != nil {
		panic(err)
	}

	return r
}

// ValueKey identifies the value of one field on one task.
type ValueKey struct {
	FieldID string
	TaskID  string
}

// ValuesIndex holds stored values by (field, task).
type ValuesIndex map[ValueKey]*fields.FieldValue

// FieldsIndex holds definitions by field id.
type FieldsIndex map[string]fields.FieldDefinition

// Put stores fv under its own field and task ids.
func (idx ValuesIndex) Put(fv fields.FieldValue) {
	idx[ValueKey{FieldID: fv.FieldID, TaskID: fv.TaskID}] = &fv
}

// Get returns the value of field on task, or nil.
func (idx ValuesIndex) Get(fieldID, taskID string) *fields.FieldValue {
	return idx[ValueKey{FieldID: fieldID, TaskID: taskID}]
}

// TaskPassesAllFilters reports whether the task satisfies every rule. No rules
// means every task passes. Rules whose field is not in defs pass.
func TaskPassesAllFilters(rules []Rule, taskID string, values ValuesIndex, defs FieldsIndex) bool {
	for _, rule := range rules {
		def, ok := defs[rule.FieldID]
		if !ok {
			continue
		}

		if !TaskPassesFilter(rule, values.Get(rule.FieldID, taskID), def) {
			return false
		}
	}

	return true
}

// TaskPassesFilter evaluates one rule against one stored value. fv may be nil
// when the task has no value for the field.
func TaskPassesFilter(rule Rule, fv *fields.FieldValue, def fields.FieldDefinition) bool {
	switch rule.Operator {
	case fields.OpIsEmpty:
		return isEmpty(fv, def.Type)
	case fields.OpIsNotEmpty:
		return !isEmpty(fv, def.Type)
	}

	switch def.Type {
	case fields.TypeText, fields.TypeURL, fields.TypeEmail:
		return matchText(rule, fv.ToValue(def.Type))
	case fields.TypeNumber, fields.TypeCurrency, fields.TypePercent, fields.TypeRating:
		return matchNumber(rule, fv.ToValue(def.Type))
	case fields.TypeDate:
		return matchDate(rule, fv.ToValue(def.Type))
	case fields.TypeCheckbox:
		return matchCheckbox(rule, fv.ToValue(def.Type))
	case fields.TypeSelect:
		return matchSelect(rule, fv.ToValue(def.Type), &def)
	case fields.TypeMultiselect:
		return matchMultiselect(rule, fv.ToValue(def.Type), &def)
	case fields.TypeFormula, fields.TypeRollup:
		return matchDerived(rule, fv.ToValue(def.Type))
	}

	return true
}

// isEmpty is the single definition of emptiness per type. Checkbox is empty
// only when never set; an explicit false is a value.
func isEmpty(fv *fields.FieldValue, t fields.FieldType) bool {
	v := fv.ToValue(t)

	switch t {
	case fields.TypeText, fields.TypeURL, fields.TypeEmail, fields.TypeSelect,
		fields.TypeFormula, fields.TypeRollup:
		s, ok := v.Str()
		return !ok || strings.TrimSpace(s) == ""
	case fields.TypeNumber, fields.TypeCurrency, fields.TypePercent, fields.TypeRating,
		fields.TypeDate, fields.TypeCheckbox, fields.TypeMultiselect:
		return v.IsEmpty()
	}

	return fv.IsEmpty()
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func matchText(rule Rule, v fields.Value) bool {
	s, _ := v.Str()
	got, want := fold(s), fold(rule.Operand)

	switch rule.Operator {
	case fields.OpContains:
		return strings.Contains(got, want)
	case fields.OpNotContains:
		return !strings.Contains(got, want)
	case fields.OpEquals:
		return got == want
	case fields.OpNotEquals:
		return got != want
	}

	return true
}

// matchNumber compares when both the stored value and the operand are
// numbers. If either side is missing or unparsable, every comparison is false.
func matchNumber(rule Rule, v fields.Value) bool {
	switch rule.Operator {
	case fields.OpEquals, fields.OpNotEquals, fields.OpGreaterThan, fields.OpLessThan,
		fields.OpGreaterOrEqual, fields.OpLessOrEqual:
	default:
		return true
	}

	got, ok := v.Num()
	if !ok {
		return false
	}

	want, ok := fields.ParseNumber(rule.Operand)
	if !ok {
		return false
	}

	switch rule.Operator {
	case fields.OpEquals:
		return got == want
	case fields.OpNotEquals:
		return got != want
	case fields.OpGreaterThan:
		return got > want
	case fields.OpLessThan:
		return got < want
	case fields.OpGreaterOrEqual:
		return got >= want
	default:
		return got <= want
	}
}

// matchDate treats equals as "within one day" of the operand so a bare date
// matches any time on that day.
func matchDate(rule Rule, v fields.Value) bool {
	switch rule.Operator {
	case fields.OpEquals, fields.OpBefore, fields.OpAfter:
	default:
		return true
	}

	got, ok := v.Millis()
	if !ok {
		return false
	}

	t, ok := fields.ParseDate(rule.Operand)
	if !ok {
		return false
	}

	want := t.UnixMilli()

	switch rule.Operator {
	case fields.OpEquals:
		diff := got - want
		if diff < 0 {
			diff = -diff
		}

		return diff < fields.MsPerDay
	case fields.OpBefore:
		return got < want
	default:
		return got > want
	}
}

// matchCheckbox reads a never-set checkbox as unchecked.
func matchCheckbox(rule Rule, v fields.Value) bool {
	checked, _ := v.Boolean()

	switch rule.Operator {
	case fields.OpIsTrue:
		return checked
	case fields.OpIsFalse:
		return !checked
	}

	return true
}

func matchSelect(rule Rule, v fields.Value, def *fields.FieldDefinition) bool {
	s, ok := v.Str()

	switch rule.Operator {
	case fields.OpEquals:
		return ok && def.MatchesOption(strings.TrimSpace(s), strings.TrimSpace(rule.Operand))
	case fields.OpNotEquals:
		return !ok || !def.MatchesOption(strings.TrimSpace(s), strings.TrimSpace(rule.Operand))
	}

	return true
}

func matchMultiselect(rule Rule, v fields.Value, def *fields.FieldDefinition) bool {
	items, _ := v.Items()
	want := strings.TrimSpace(rule.Operand)

	has := false

	for _, item := range items {
		if def.MatchesOption(strings.TrimSpace(item), want) {
			has = true
			break
		}
	}

	switch rule.Operator {
	case fields.OpContains:
		return has
	case fields.OpNotContains:
		return !has
	}

	return true
}

// matchDerived compares materialized formula and rollup results. equals is
// numeric when both sides parse as numbers, otherwise case-insensitive text.
func matchDerived(rule Rule, v fields.Value) bool {
	s, _ := v.Str()

	switch rule.Operator {
	case fields.OpEquals:
		a, aok := fields.ParseNumber(s)
		b, bok := fields.ParseNumber(rule.Operand)

		if aok && bok {
			return a == b
		}

		return fold(s) == fold(rule.Operand)
	case fields.OpContains:
		return strings.Contains(fold(s), fold(rule.Operand))
	}

	return true
}
