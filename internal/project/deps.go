package project

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/formula"
	"github.com/jamsmac/MYDON-sub006/pkg/rollup"
)

// Dependencies returns, for every formula field, the field names its formula
// references, in first-occurrence order.
func Dependencies(defs []fields.FieldDefinition) map[string][]string {
	deps := make(map[string][]string)

	for _, def := range defs {
		if def.Type == fields.TypeFormula {
			deps[def.Name] = formula.ExtractFieldRefs(def.Formula)
		}
	}

	return deps
}

// CheckFormulaCycles reports a formula that depends on itself through other
// formulas on the same task. Rollups read child tasks, so an edge through a
// rollup never closes a cycle.
//
// The returned error names the cycle path, e.g. "a -> b -> a".
func CheckFormulaCycles(defs []fields.FieldDefinition) error {
	deps := Dependencies(defs)

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}

	slices.Sort(names)

	const (
		unvisited = iota
		inProgress
		done
	)

	state := make(map[string]int, len(deps))

	var stack []string

	var visit func(name string) error

	visit = func(name string) error {
		switch state[name] {
		case inProgress:
			start := slices.Index(stack, name)
			path := append(slices.Clone(stack[start:]), name)

			return fmt.Errorf("%w: %s", ErrFormulaCycle, strings.Join(path, " -> "))
		case done:
			return nil
		}

		state[name] = inProgress
		stack = append(stack, name)

		for _, ref := range deps[name] {
			if _, isFormula := deps[ref]; !isFormula {
				continue
			}

			if err := visit(ref); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done

		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}

	return nil
}

// checkDerived validates the parts of a formula or rollup definition that
// depend on the rest of the catalog.
func (c *Catalog) checkDerived(def fields.FieldDefinition) error {
	switch def.Type {
	case fields.TypeFormula:
		v := formula.Validate(def.Formula, formula.WithKnownFields(c.FieldNames()...))
		if !v.Valid {
			return fmt.Errorf("%w: %s", ErrInvalidFormula, v.Error)
		}
	case fields.TypeRollup:
		if _, err := rollup.ParseAggregation(def.Rollup.Aggregation); err != nil {
			return err
		}

		if _, ok := c.Field(def.Rollup.SourceField); !ok {
			return fmt.Errorf("%w: %q", ErrRollupSourceMissing, def.Rollup.SourceField)
		}
	}

	return nil
}
