package project

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// newFieldID returns a time-ordered id so fields sort by creation.
func newFieldID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}

	return id.String(), nil
}

func (c *Catalog) addDefinition(def fields.FieldDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	for _, existing := range c.fields {
		if existing.Name == def.Name {
			return fmt.Errorf("%w: %q", ErrFieldExists, def.Name)
		}

		if existing.ID == def.ID {
			return fmt.Errorf("%w: id %q", ErrFieldExists, def.ID)
		}
	}

	c.fields = append(c.fields, def)

	return nil
}

// AddField adds a definition to the catalog, assigning an id when it has
// none. Formulas must be valid and may only reference existing fields,
// rollups must name an existing source and a known aggregation, and the new
// field must not close a formula cycle. On error the catalog is unchanged.
func (c *Catalog) AddField(def fields.FieldDefinition) (fields.FieldDefinition, error) {
	if def.ID == "" {
		id, err := newFieldID()
		if err != nil {
			return fields.FieldDefinition{}, err
		}

		def.ID = id
	}

	before := len(c.fields)

	if err := c.addDefinition(def); err != nil {
		return fields.FieldDefinition{}, withContext(err, "", def.Name)
	}

	err := c.checkDerived(def)
	if err == nil {
		err = CheckFormulaCycles(c.fields)
	}

	if err != nil {
		c.fields = slices.Delete(c.fields, before, len(c.fields))

		return fields.FieldDefinition{}, withContext(err, "", def.Name)
	}

	return def, nil
}
