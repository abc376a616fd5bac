package project

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/filter"
)

// ParseValue turns user input for a field into its stored form. Empty input
// (after trimming) yields an empty value, which clears the field.
//
// Numbers accept a trailing "%" on percent fields. Ratings must be whole
// numbers from 0 to 5. Checkboxes accept true/false, yes/no, 1/0 and x.
// Multiselect input is comma separated. Select and multiselect values must
// name an option by value or label; the stored form is the option value.
func ParseValue(def fields.FieldDefinition, taskID, raw string) (fields.FieldValue, error) {
	fv := fields.FieldValue{FieldID: def.ID, TaskID: taskID}

	if def.Type.IsDerived() {
		return fv, ErrDerivedValue
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return fv, nil
	}

	switch def.Type {
	case fields.TypeText, fields.TypeURL, fields.TypeEmail:
		if def.Type == fields.TypeEmail && !strings.Contains(s, "@") {
			return fv, fmt.Errorf("%w: %q is not an email address", ErrInvalidValue, s)
		}

		fv.Text = &s
	case fields.TypeNumber, fields.TypeCurrency, fields.TypePercent, fields.TypeRating:
		if def.Type == fields.TypePercent {
			s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		}

		n, ok := fields.ParseNumber(s)
		if !ok {
			return fv, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
		}

		if def.Type == fields.TypeRating && (n < 0 || n > 5 || n != float64(int(n))) {
			return fv, fmt.Errorf("%w: rating must be a whole number from 0 to 5, got %q", ErrInvalidValue, raw)
		}

		fv.Number = &n
	case fields.TypeDate:
		d, ok := fields.ParseDate(s)
		if !ok {
			return fv, fmt.Errorf("%w: %q is not a date", ErrInvalidValue, raw)
		}

		fv.Date = &d
	case fields.TypeCheckbox:
		b, err := parseCheckbox(s)
		if err != nil {
			return fv, err
		}

		fv.Bool = &b
	case fields.TypeSelect:
		v, err := resolveOption(def, s)
		if err != nil {
			return fv, err
		}

		fv.Text = &v
	case fields.TypeMultiselect:
		var list []string

		for part := range strings.SplitSeq(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			v, err := resolveOption(def, part)
			if err != nil {
				return fv, err
			}

			list = append(list, v)
		}

		fv.List = list
	default:
		return fv, fmt.Errorf("%w: %q", fields.ErrUnknownFieldType, def.Type)
	}

	return fv, nil
}

func parseCheckbox(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "x", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	}

	return false, fmt.Errorf("%w: %q is not a checkbox value", ErrInvalidValue, s)
}

// resolveOption maps s to an option value. Fields without options accept
// anything.
func resolveOption(def fields.FieldDefinition, s string) (string, error) {
	if len(def.Options) == 0 {
		return s, nil
	}

	for _, opt := range def.Options {
		if strings.EqualFold(opt.Value, s) || strings.EqualFold(opt.Label, s) {
			return opt.Value, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownOption, s)
}

// FormatValue renders a stored value for display. Select options show their
// label.
func FormatValue(def fields.FieldDefinition, fv *fields.FieldValue) string {
	v := fv.ToValue(def.Type)

	switch def.Type {
	case fields.TypeSelect:
		if s, ok := v.Str(); ok {
			return def.OptionLabel(s)
		}
	case fields.TypeMultiselect:
		if items, ok := v.Items(); ok {
			labels := make([]string, len(items))
			for i, item := range items {
				labels[i] = def.OptionLabel(item)
			}

			return strings.Join(labels, ", ")
		}
	case fields.TypeCurrency:
		if n, ok := v.Num(); ok && def.CurrencyCode != "" {
			return fields.FormatNumber(n) + " " + def.CurrencyCode
		}
	case fields.TypePercent:
		if n, ok := v.Num(); ok {
			return fields.FormatNumber(n) + "%"
		}
	}

	return v.Display()
}

// decodeJSONValue reads a value from the catalog file. Numbers may be JSON
// numbers or numeric strings, dates are strings, checkboxes booleans and
// multiselect values string arrays. null is an empty value.
func decodeJSONValue(def fields.FieldDefinition, taskID string, raw json.RawMessage) (fields.FieldValue, error) {
	if def.Type.IsDerived() {
		return fields.FieldValue{}, ErrDerivedValue
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fields.FieldValue{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	switch x := v.(type) {
	case nil:
		return fields.FieldValue{FieldID: def.ID, TaskID: taskID}, nil
	case string:
		return ParseValue(def, taskID, x)
	case float64:
		if !def.Type.IsNumeric() {
			return fields.FieldValue{}, fmt.Errorf("%w: number given for %s field", ErrInvalidValue, def.Type)
		}

		return ParseValue(def, taskID, strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		if def.Type != fields.TypeCheckbox {
			return fields.FieldValue{}, fmt.Errorf("%w: boolean given for %s field", ErrInvalidValue, def.Type)
		}

		return fields.FieldValue{FieldID: def.ID, TaskID: taskID, Bool: &x}, nil
	case []any:
		if def.Type != fields.TypeMultiselect {
			return fields.FieldValue{}, fmt.Errorf("%w: list given for %s field", ErrInvalidValue, def.Type)
		}

		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return fields.FieldValue{}, fmt.Errorf("%w: multiselect items must be strings", ErrInvalidValue)
			}

			parts = append(parts, s)
		}

		return ParseValue(def, taskID, strings.Join(parts, ","))
	}

	return fields.FieldValue{}, fmt.Errorf("%w: unsupported JSON value", ErrInvalidValue)
}

func encodeJSONValue(def fields.FieldDefinition, fv *fields.FieldValue) (json.RawMessage, error) {
	var v any

	switch {
	case fv.Number != nil:
		v = *fv.Number
	case fv.Bool != nil:
		v = *fv.Bool
	case fv.Date != nil:
		v = fields.FormatTimestamp(fv.Date.UTC().UnixMilli())
	case fv.List != nil:
		v = fv.List
	case fv.Text != nil:
		v = *fv.Text
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", def.Type, err)
	}

	return data, nil
}

// SetValue parses raw and stores it on the task, or clears the field when raw
// is blank.
func (c *Catalog) SetValue(taskID, fieldName, raw string) error {
	if _, ok := c.Task(taskID); !ok {
		return withContext(ErrTaskNotFound, taskID, "")
	}

	def, ok := c.Field(fieldName)
	if !ok {
		return withContext(ErrFieldNotFound, taskID, fieldName)
	}

	fv, err := ParseValue(def, taskID, raw)
	if err != nil {
		return withContext(err, taskID, fieldName)
	}

	if fv.IsEmpty() {
		delete(c.values, filter.ValueKey{FieldID: def.ID, TaskID: taskID})

		return nil
	}

	c.values.Put(fv)

	return nil
}
