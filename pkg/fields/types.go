// Package fields defines the custom-field model shared by the formula
// evaluator, the rollup aggregator and the filter engine: field types and
// definitions, stored field values, the [Value] tagged union that every
// evaluation step exchanges, evaluation results, and the registry of filter
// operators legal per field type.
//
// Everything in this package is immutable data plus pure functions. Nothing
// here performs I/O or keeps state between calls.
package fields

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is one of the 13 supported custom-field kinds.
type FieldType string

// FieldType values.
const (
	TypeText        FieldType = "text"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeCheckbox    FieldType = "checkbox"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeURL         FieldType = "url"
	TypeEmail       FieldType = "email"
	TypeFormula     FieldType = "formula"
	TypeRollup      FieldType = "rollup"
	TypeCurrency    FieldType = "currency"
	TypePercent     FieldType = "percent"
	TypeRating      FieldType = "rating"
)

var allFieldTypes = []FieldType{
	TypeText,
	TypeNumber,
	TypeDate,
	TypeCheckbox,
	TypeSelect,
	TypeMultiselect,
	TypeURL,
	TypeEmail,
	TypeFormula,
	TypeRollup,
	TypeCurrency,
	TypePercent,
	TypeRating,
}

// AllFieldTypes returns every field type in declaration order.
func AllFieldTypes() []FieldType {
	out := make([]FieldType, len(allFieldTypes))
	copy(out, allFieldTypes)

	return out
}

// ParseFieldType parses a type name case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	want := FieldType(strings.ToLower(strings.TrimSpace(s)))

	for _, t := range allFieldTypes {
		if t == want {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

// IsNumeric reports whether values of this type live in the number slot.
func (t FieldType) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeCurrency, TypePercent, TypeRating:
		return true
	default:
		return false
	}
}

// IsTextual reports whether values of this type live in the text slot.
func (t FieldType) IsTextual() bool {
	switch t {
	case TypeText, TypeURL, TypeEmail, TypeSelect:
		return true
	default:
		return false
	}
}

// IsDerived reports whether the value is computed rather than entered.
func (t FieldType) IsDerived() bool {
	return t == TypeFormula || t == TypeRollup
}

// Option is one choice of a select or multiselect field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// RollupConfig names the source field and aggregation of a rollup field.
// Aggregation is kept as a string here; package rollup owns its parsing.
type RollupConfig struct {
	SourceField string `json:"source_field"`
	Aggregation string `json:"aggregation"`
}

// FieldDefinition describes one custom field of a project.
type FieldDefinition struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         FieldType     `json:"type"`
	Options      []Option      `json:"options,omitempty"`
	Formula      string        `json:"formula,omitempty"`
	Rollup       *RollupConfig `json:"rollup,omitempty"`
	CurrencyCode string        `json:"currency_code,omitempty"`
}

// Definition errors.
var (
	ErrUnknownFieldType     = errors.New("unknown field type")
	ErrFieldIDRequired      = errors.New("field id is required")
	ErrFieldNameRequired    = errors.New("field name is required")
	ErrFormulaRequired      = errors.New("formula field requires a formula")
	ErrFormulaNotAllowed    = errors.New("formula is only allowed on formula fields")
	ErrRollupRequired       = errors.New("rollup field requires a rollup config")
	ErrRollupNotAllowed     = errors.New("rollup config is only allowed on rollup fields")
	ErrRollupSourceRequired = errors.New("rollup config requires a source field")
	ErrOptionsNotAllowed    = errors.New("options are only allowed on select and multiselect fields")
	ErrCurrencyNotAllowed   = errors.New("currency code is only allowed on currency fields")
	ErrDuplicateOption      = errors.New("duplicate option value")
)

// Validate checks the structural invariants of a definition: identity is
// present, and formula, rollup config, options and currency code appear only
// on the field type they belong to.
func (d *FieldDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrFieldIDRequired
	}

	if strings.TrimSpace(d.Name) == "" {
		return ErrFieldNameRequired
	}

	if _, err := ParseFieldType(string(d.Type)); err != nil {
		return err
	}

	switch {
	case d.Type == TypeFormula && strings.TrimSpace(d.Formula) == "":
		return ErrFormulaRequired
	case d.Type != TypeFormula && d.Formula != "":
		return ErrFormulaNotAllowed
	case d.Type == TypeRollup && d.Rollup == nil:
		return ErrRollupRequired
	case d.Type != TypeRollup && d.Rollup != nil:
		return ErrRollupNotAllowed
	case d.Rollup != nil && strings.TrimSpace(d.Rollup.SourceField) == "":
		return ErrRollupSourceRequired
	case len(d.Options) > 0 && d.Type != TypeSelect && d.Type != TypeMultiselect:
		return ErrOptionsNotAllowed
	case d.CurrencyCode != "" && d.Type != TypeCurrency:
		return ErrCurrencyNotAllowed
	}

	seen := make(map[string]bool, len(d.Options))
	for _, opt := range d.Options {
		key := strings.ToLower(opt.Value)
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateOption, opt.Value)
		}

		seen[key] = true
	}

	return nil
}

// OptionLabel returns the label for an option value, or the value itself when
// no option matches.
func (d *FieldDefinition) OptionLabel(value string) string {
	for _, opt := range d.Options {
		if strings.EqualFold(opt.Value, value) {
			if opt.Label != "" {
				return opt.Label
			}

			return opt.Value
		}
	}

	return value
}

// MatchesOption reports whether stored option value v is selected by operand,
// comparing against both the option value and its label, case-insensitively.
func (d *FieldDefinition) MatchesOption(v, operand string) bool {
	if strings.EqualFold(v, operand) {
		return true
	}

	for _, opt := range d.Options {
		if strings.EqualFold(opt.Value, v) && opt.Label != "" && strings.EqualFold(opt.Label, operand) {
			return true
		}
	}

	return false
}
