package project_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
	"github.com/jamsmac/MYDON-sub006/pkg/rollup"
)

func Test_AddField_AssignsTimeOrderedID_When_IDEmpty(t *testing.T) {
	t.Parallel()

	c := project.New()

	first, err := c.AddField(fields.FieldDefinition{Name: "hours", Type: fields.TypeNumber})
	require.NoError(t, err)

	second, err := c.AddField(fields.FieldDefinition{Name: "budget", Type: fields.TypeCurrency, CurrencyCode: "USD"})
	require.NoError(t, err)

	id, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"hours", "budget"}, c.FieldNames())
}

func Test_AddField_RejectsDefinition_When_InvalidInCatalog(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		def  fields.FieldDefinition
		want error
	}{
		{name: "NameTaken", def: fields.FieldDefinition{Name: "hours", Type: fields.TypeText}, want: project.ErrFieldExists},
		{name: "NoName", def: fields.FieldDefinition{Type: fields.TypeText}, want: fields.ErrFieldNameRequired},
		{name: "BadFormula", def: fields.FieldDefinition{Name: "x", Type: fields.TypeFormula, Formula: "{{hours}} +"}, want: project.ErrInvalidFormula},
		{name: "UnknownRef", def: fields.FieldDefinition{Name: "x", Type: fields.TypeFormula, Formula: "{{cost}}"}, want: project.ErrInvalidFormula},
		{name: "SelfReference", def: fields.FieldDefinition{Name: "x", Type: fields.TypeFormula, Formula: "{{x}} + 1"}, want: project.ErrFormulaCycle},
		{
			name: "RollupSourceMissing",
			def:  fields.FieldDefinition{Name: "x", Type: fields.TypeRollup, Rollup: &fields.RollupConfig{SourceField: "cost", Aggregation: "sum"}},
			want: project.ErrRollupSourceMissing,
		},
		{
			name: "RollupBadAggregation",
			def:  fields.FieldDefinition{Name: "x", Type: fields.TypeRollup, Rollup: &fields.RollupConfig{SourceField: "hours", Aggregation: "median"}},
			want: rollup.ErrUnknownAggregation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := project.New()
			_, err := c.AddField(fields.FieldDefinition{Name: "hours", Type: fields.TypeNumber})
			require.NoError(t, err)

			_, err = c.AddField(tc.def)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, []string{"hours"}, c.FieldNames(), "catalog must be unchanged")
		})
	}
}

func Test_CheckFormulaCycles_NamesPath_When_CycleExists(t *testing.T) {
	t.Parallel()

	defs := []fields.FieldDefinition{
		{ID: "1", Name: "a", Type: fields.TypeFormula, Formula: "{{b}} + {{n}}"},
		{ID: "2", Name: "b", Type: fields.TypeFormula, Formula: "{{c}}"},
		{ID: "3", Name: "c", Type: fields.TypeFormula, Formula: "{{a}} * 2"},
		{ID: "4", Name: "n", Type: fields.TypeNumber},
	}

	err := project.CheckFormulaCycles(defs)
	require.ErrorIs(t, err, project.ErrFormulaCycle)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}

func Test_CheckFormulaCycles_IgnoresRollupEdges_When_RollupReadsFormula(t *testing.T) {
	t.Parallel()

	defs := []fields.FieldDefinition{
		{ID: "1", Name: "f", Type: fields.TypeFormula, Formula: "{{r}} + 1"},
		{ID: "2", Name: "r", Type: fields.TypeRollup, Rollup: &fields.RollupConfig{SourceField: "f", Aggregation: "sum"}},
	}

	require.NoError(t, project.CheckFormulaCycles(defs))
}

func Test_Dependencies_ListsFormulaRefs(t *testing.T) {
	t.Parallel()

	deps := project.Dependencies([]fields.FieldDefinition{
		{Name: "rate", Type: fields.TypeFormula, Formula: "{{budget}} / {{hours}} + {{budget}}"},
		{Name: "budget", Type: fields.TypeNumber},
	})

	assert.Equal(t, map[string][]string{"rate": {"budget", "hours"}}, deps)
}
