package project

import (
	"fmt"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/filter"
)

// ParseRule reads a rule written as "field operator [operand]", for example
// "budget > 100", "status equals in progress" or "notes is_empty". Field
// names may contain spaces: the field is the shortest leading run of words
// that names a field and is followed by an operator. Operators may be
// spelled with a space ("is empty").
func (c *Catalog) ParseRule(expr string) (filter.Rule, error) {
	words := strings.Fields(expr)
	known := false

	for i := 1; i < len(words); i++ {
		def, ok := c.Field(strings.Join(words[:i], " "))
		if !ok {
			continue
		}

		known = true

		op, n, ok := operatorAt(words[i:])
		if !ok {
			continue
		}

		rule, err := filter.NewRule(def, op, strings.Join(words[i+n:], " "))
		if err != nil {
			return filter.Rule{}, fmt.Errorf("rule %q: %w", expr, err)
		}

		return rule, nil
	}

	if known {
		return filter.Rule{}, fmt.Errorf("rule %q: %w", expr, fields.ErrUnknownOperator)
	}

	return filter.Rule{}, fmt.Errorf("rule %q: %w", expr, ErrFieldNotFound)
}

// operatorAt parses the operator at the start of words, preferring the
// longest spelling ("is not empty" over "is"). It returns how many words the
// operator used.
func operatorAt(words []string) (fields.Operator, int, bool) {
	for n := min(3, len(words)); n > 0; n-- {
		if op, err := fields.ParseOperator(strings.Join(words[:n], "_")); err == nil {
			return op, n, true
		}
	}

	return "", 0, false
}
