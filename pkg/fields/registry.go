package fields

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Operator is a filter operator.
type Operator string

// Operator values.
const (
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpBefore         Operator = "before"
	OpAfter          Operator = "after"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
	OpIsTrue         Operator = "is_true"
	OpIsFalse        Operator = "is_false"
)

// OperatorInfo is the UI-facing description of an operator.
type OperatorInfo struct {
	Operator     Operator
	Label        string
	NeedsOperand bool
}

var operatorInfo = map[Operator]OperatorInfo{
	OpContains:       {OpContains, "contains", true},
	OpNotContains:    {OpNotContains, "does not contain", true},
	OpEquals:         {OpEquals, "is", true},
	OpNotEquals:      {OpNotEquals, "is not", true},
	OpGreaterThan:    {OpGreaterThan, ">", true},
	OpLessThan:       {OpLessThan, "<", true},
	OpGreaterOrEqual: {OpGreaterOrEqual, ">=", true},
	OpLessOrEqual:    {OpLessOrEqual, "<=", true},
	OpBefore:         {OpBefore, "is before", true},
	OpAfter:          {OpAfter, "is after", true},
	OpIsEmpty:        {OpIsEmpty, "is empty", false},
	OpIsNotEmpty:     {OpIsNotEmpty, "is not empty", false},
	OpIsTrue:         {OpIsTrue, "is checked", false},
	OpIsFalse:        {OpIsFalse, "is not checked", false},
}

var (
	textOperators = []Operator{OpContains, OpEquals, OpNotContains, OpIsEmpty, OpIsNotEmpty}

	numberOperators = []Operator{
		OpEquals, OpNotEquals,
		OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual,
		OpIsEmpty, OpIsNotEmpty,
	}

	dateOperators        = []Operator{OpEquals, OpBefore, OpAfter, OpIsEmpty, OpIsNotEmpty}
	checkboxOperators    = []Operator{OpIsTrue, OpIsFalse}
	selectOperators      = []Operator{OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty}
	multiselectOperators = []Operator{OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty}
	ratingOperators      = []Operator{OpEquals, OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual}
	derivedOperators     = []Operator{OpEquals, OpContains, OpIsEmpty, OpIsNotEmpty}
)

// registry is the single source of truth for which operators a field type
// accepts. Rule construction and operator pickers both read it.
var registry = map[FieldType][]Operator{
	TypeText:        textOperators,
	TypeURL:         textOperators,
	TypeEmail:       textOperators,
	TypeNumber:      numberOperators,
	TypeCurrency:    numberOperators,
	TypePercent:     numberOperators,
	TypeDate:        dateOperators,
	TypeCheckbox:    checkboxOperators,
	TypeSelect:      selectOperators,
	TypeMultiselect: multiselectOperators,
	TypeRating:      ratingOperators,
	TypeFormula:     derivedOperators,
	TypeRollup:      derivedOperators,
}

// ErrUnknownOperator is returned by [ParseOperator].
var ErrUnknownOperator = errors.New("unknown operator")

// OperatorsFor returns the operators registered for t, in display order.
// Unknown types have none.
func OperatorsFor(t FieldType) []Operator {
	return slices.Clone(registry[t])
}

// IsOperatorAllowed reports whether op is registered for t.
func IsOperatorAllowed(t FieldType, op Operator) bool {
	return slices.Contains(registry[t], op)
}

// Info returns the display metadata for op.
func (op Operator) Info() (OperatorInfo, bool) {
	info, ok := operatorInfo[op]

	return info, ok
}

// NeedsOperand reports whether the operator compares against an operand.
func (op Operator) NeedsOperand() bool {
	return operatorInfo[op].NeedsOperand
}

// ParseOperator parses an operator name. Symbolic aliases (=, !=, >, <, >=,
// <=) are accepted for convenience on the command line.
func ParseOperator(s string) (Operator, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	switch name {
	case "=", "==":
		return OpEquals, nil
	case "!=", "<>":
		return OpNotEquals, nil
	case ">":
		return OpGreaterThan, nil
	case "<":
		return OpLessThan, nil
	case ">=":
		return OpGreaterOrEqual, nil
	case "<=":
		return OpLessOrEqual, nil
	}

	op := Operator(name)
	if _, ok := operatorInfo[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}

	return op, nil
}
