package filter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/filter"
)

func ptr[T any](v T) *T { return &v }

var (
	textDef     = fields.FieldDefinition{ID: "f-text", Name: "notes", Type: fields.TypeText}
	numberDef   = fields.FieldDefinition{ID: "f-num", Name: "budget", Type: fields.TypeNumber}
	dateDef     = fields.FieldDefinition{ID: "f-date", Name: "due", Type: fields.TypeDate}
	checkDef    = fields.FieldDefinition{ID: "f-check", Name: "done", Type: fields.TypeCheckbox}
	formulaDef  = fields.FieldDefinition{ID: "f-formula", Name: "rate", Type: fields.TypeFormula, Formula: "1"}
	priorityDef = fields.FieldDefinition{
		ID: "f-prio", Name: "prio", Type: fields.TypeSelect,
		Options: []fields.Option{{Value: "high", Label: "High"}, {Value: "low", Label: "Low"}},
	}
	tagsDef = fields.FieldDefinition{
		ID: "f-tags", Name: "tags", Type: fields.TypeMultiselect,
		Options: []fields.Option{{Value: "be", Label: "Backend"}, {Value: "fe", Label: "Frontend"}},
	}
)

func day(s string) *time.Time {
	t, ok := fields.ParseDate(s)
	if !ok {
		panic("bad date " + s)
	}

	return &t
}

func Test_TaskPassesFilter_MatchesPerType_When_OperatorApplied(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		def     fields.FieldDefinition
		op      fields.Operator
		operand string
		value   *fields.FieldValue
		want    bool
	}{
		{name: "TextContainsIgnoresCase", def: textDef, op: fields.OpContains, operand: "URGENT", value: &fields.FieldValue{Text: ptr("an urgent fix")}, want: true},
		{name: "TextNotContainsOnNil", def: textDef, op: fields.OpNotContains, operand: "x", value: nil, want: true},
		{name: "TextEqualsTrims", def: textDef, op: fields.OpEquals, operand: " Done ", value: &fields.FieldValue{Text: ptr("done")}, want: true},

		{name: "NumberGreater", def: numberDef, op: fields.OpGreaterThan, operand: "100", value: &fields.FieldValue{Number: ptr(150.0)}, want: true},
		{name: "NumberGreaterBoundary", def: numberDef, op: fields.OpGreaterThan, operand: "100", value: &fields.FieldValue{Number: ptr(100.0)}, want: false},
		{name: "NumberGreaterOrEqualBoundary", def: numberDef, op: fields.OpGreaterOrEqual, operand: "100", value: &fields.FieldValue{Number: ptr(100.0)}, want: true},
		{name: "NumberMissingNeverCompares", def: numberDef, op: fields.OpLessThan, operand: "100", value: nil, want: false},
		{name: "NumberMissingNotEqualsFalse", def: numberDef, op: fields.OpNotEquals, operand: "100", value: nil, want: false},
		{name: "NumberBadOperand", def: numberDef, op: fields.OpEquals, operand: "lots", value: &fields.FieldValue{Number: ptr(1.0)}, want: false},

		{name: "DateEqualsSameDayLater", def: dateDef, op: fields.OpEquals, operand: "2025-01-15", value: &fields.FieldValue{Date: day("2025-01-15T23:59:00Z")}, want: true},
		{name: "DateEqualsTwoDaysOff", def: dateDef, op: fields.OpEquals, operand: "2025-01-15", value: &fields.FieldValue{Date: day("2025-01-17")}, want: false},
		{name: "DateBefore", def: dateDef, op: fields.OpBefore, operand: "2025-02-01", value: &fields.FieldValue{Date: day("2025-01-15")}, want: true},
		{name: "DateAfterMissing", def: dateDef, op: fields.OpAfter, operand: "2025-02-01", value: nil, want: false},
		{name: "DateBadOperand", def: dateDef, op: fields.OpBefore, operand: "soon", value: &fields.FieldValue{Date: day("2025-01-15")}, want: false},

		{name: "CheckboxTrue", def: checkDef, op: fields.OpIsTrue, value: &fields.FieldValue{Bool: ptr(true)}, want: true},
		{name: "CheckboxFalseExplicit", def: checkDef, op: fields.OpIsFalse, value: &fields.FieldValue{Bool: ptr(false)}, want: true},
		{name: "CheckboxFalseNeverSet", def: checkDef, op: fields.OpIsFalse, value: nil, want: true},
		{name: "CheckboxTrueNeverSet", def: checkDef, op: fields.OpIsTrue, value: nil, want: false},

		{name: "SelectEqualsValue", def: priorityDef, op: fields.OpEquals, operand: "HIGH", value: &fields.FieldValue{Text: ptr("high")}, want: true},
		{name: "SelectEqualsLabel", def: priorityDef, op: fields.OpEquals, operand: "Low", value: &fields.FieldValue{Text: ptr("low")}, want: true},
		{name: "SelectNotEqualsOnNil", def: priorityDef, op: fields.OpNotEquals, operand: "high", value: nil, want: true},

		{name: "MultiselectContainsLabel", def: tagsDef, op: fields.OpContains, operand: "backend", value: &fields.FieldValue{List: []string{"fe", "be"}}, want: true},
		{name: "MultiselectNotContains", def: tagsDef, op: fields.OpNotContains, operand: "be", value: &fields.FieldValue{List: []string{"fe"}}, want: true},
		{name: "MultiselectContainsIsExact", def: tagsDef, op: fields.OpContains, operand: "b", value: &fields.FieldValue{List: []string{"be"}}, want: false},

		{name: "DerivedEqualsNumeric", def: formulaDef, op: fields.OpEquals, operand: "350.0", value: &fields.FieldValue{Text: ptr("350")}, want: true},
		{name: "DerivedContains", def: formulaDef, op: fields.OpContains, operand: "late", value: &fields.FieldValue{Text: ptr("Running LATE")}, want: true},

		{name: "UnregisteredOperatorPasses", def: checkDef, op: fields.OpEquals, operand: "x", value: nil, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rule := filter.Rule{FieldID: tc.def.ID, Operator: tc.op, Operand: tc.operand}
			assert.Equal(t, tc.want, filter.TaskPassesFilter(rule, tc.value, tc.def))
		})
	}
}

// Contract: for every type and every stored value, is_not_empty is exactly the
// negation of is_empty.
func Test_TaskPassesFilter_EmptinessIsComplementary_When_AnyValue(t *testing.T) {
	t.Parallel()

	values := []*fields.FieldValue{
		nil,
		{},
		{Text: ptr("")},
		{Text: ptr("   ")},
		{Text: ptr("x")},
		{Number: ptr(0.0)},
		{Number: ptr(3.0)},
		{Date: day("2025-01-15")},
		{Bool: ptr(false)},
		{Bool: ptr(true)},
		{List: []string{}},
		{List: []string{"be"}},
	}

	for _, typ := range fields.AllFieldTypes() {
		def := fields.FieldDefinition{ID: "f", Name: "f", Type: typ}

		for i, fv := range values {
			empty := filter.TaskPassesFilter(filter.Rule{FieldID: "f", Operator: fields.OpIsEmpty}, fv, def)
			notEmpty := filter.TaskPassesFilter(filter.Rule{FieldID: "f", Operator: fields.OpIsNotEmpty}, fv, def)

			if empty == notEmpty {
				t.Errorf("%s value #%d: is_empty=%v is_not_empty=%v", typ, i, empty, notEmpty)
			}
		}
	}
}

func Test_TaskPassesFilter_TreatsFalseAndZeroAsValues_When_CheckingEmptiness(t *testing.T) {
	t.Parallel()

	isEmpty := filter.Rule{Operator: fields.OpIsEmpty}

	assert.False(t, filter.TaskPassesFilter(isEmpty, &fields.FieldValue{Bool: ptr(false)}, checkDef))
	assert.True(t, filter.TaskPassesFilter(isEmpty, nil, checkDef))
	assert.False(t, filter.TaskPassesFilter(isEmpty, &fields.FieldValue{Number: ptr(0.0)}, numberDef))
	assert.True(t, filter.TaskPassesFilter(isEmpty, &fields.FieldValue{Text: ptr("  ")}, textDef))
	assert.True(t, filter.TaskPassesFilter(isEmpty, &fields.FieldValue{List: []string{}}, tagsDef))
}

// Contract: for stored number v and operand x exactly one of <, =, > holds.
func Test_TaskPassesFilter_NumberOrderIsTotal_When_BothPresent(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{-1, 0, 99.5, 100, 100.5} {
		fv := &fields.FieldValue{Number: ptr(v)}
		hits := 0

		for _, op := range []fields.Operator{fields.OpLessThan, fields.OpEquals, fields.OpGreaterThan} {
			if filter.TaskPassesFilter(filter.Rule{Operator: op, Operand: "100"}, fv, numberDef) {
				hits++
			}
		}

		assert.Equal(t, 1, hits, "value %v", v)
	}
}

func Test_TaskPassesAllFilters_ANDsRules_When_SeveralGiven(t *testing.T) {
	t.Parallel()

	defs := filter.FieldsIndex{numberDef.ID: numberDef, priorityDef.ID: priorityDef}
	values := filter.ValuesIndex{}
	values.Put(fields.FieldValue{FieldID: priorityDef.ID, TaskID: "t1", Text: ptr("high")})
	values.Put(fields.FieldValue{FieldID: numberDef.ID, TaskID: "t1", Number: ptr(50.0)})
	values.Put(fields.FieldValue{FieldID: priorityDef.ID, TaskID: "t2", Text: ptr("high")})
	values.Put(fields.FieldValue{FieldID: numberDef.ID, TaskID: "t2", Number: ptr(500.0)})

	rules := []filter.Rule{
		filter.MustRule(priorityDef, fields.OpEquals, "high"),
		filter.MustRule(numberDef, fields.OpGreaterThan, "100"),
	}

	assert.False(t, filter.TaskPassesAllFilters(rules, "t1", values, defs))
	assert.True(t, filter.TaskPassesAllFilters(rules, "t2", values, defs))
	assert.False(t, filter.TaskPassesAllFilters(rules, "t3", values, defs))
	assert.True(t, filter.TaskPassesAllFilters(nil, "t3", values, defs), "no rules should pass every task")
}

func Test_TaskPassesAllFilters_SkipsRule_When_FieldUnknown(t *testing.T) {
	t.Parallel()

	rules := []filter.Rule{{FieldID: "gone", Operator: fields.OpIsNotEmpty}}
	assert.True(t, filter.TaskPassesAllFilters(rules, "t1", filter.ValuesIndex{}, filter.FieldsIndex{}))
}

func Test_NewRule_RejectsRule_When_OperatorNotRegistered(t *testing.T) {
	t.Parallel()

	_, err := filter.NewRule(checkDef, fields.OpEquals, "true")
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrOperatorNotAllowed))

	_, err = filter.NewRule(numberDef, fields.OpGreaterThan, "  ")
	assert.ErrorIs(t, err, filter.ErrOperandRequired)

	rule, err := filter.NewRule(numberDef, fields.OpIsEmpty, "")
	require.NoError(t, err)
	assert.Equal(t, filter.Rule{FieldID: numberDef.ID, Operator: fields.OpIsEmpty}, rule)
}

func Test_MustRule_Panics_When_RuleInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { filter.MustRule(textDef, fields.OpIsTrue, "") })
}
