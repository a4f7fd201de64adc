package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_FixtureIsValid(t *testing.T) {
	errs := Validate(testutil.Catalog(), testutil.Vocabulary())
	assert.Empty(t, errs)
}

func TestValidate_CompiledFixtureIsValid(t *testing.T) {
	c, v := compileFixture(t)
	assert.Empty(t, Validate(c, v))
}

func TestValidate_Rules(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *ir.Catalog, v *ir.Vocabulary)
		code   string
	}{
		{
			name: "no tables",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Tables = nil
				c.Columns = nil
			},
			code: ErrNoTables,
		},
		{
			name: "column table missing",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Columns["ghost"] = ir.Column{Table: "nowhere"}
			},
			code: ErrColumnTableMissing,
		},
		{
			name: "column not listed",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Columns["nickname"] = ir.Column{Table: "users", Type: "text"}
			},
			code: ErrColumnNotListed,
		},
		{
			name: "table lists foreign column",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				t := c.Tables["users"]
				t.Columns = append(t.Columns, "places.name")
				c.Tables["users"] = t
			},
			code: ErrColumnNotListed,
		},
		{
			name: "unbound placeholder",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				fn := c.Functions["avg"]
				fn.Template = "AVG({column}) / {divisor}"
				c.Functions["avg"] = fn
			},
			code: ErrPlaceholderUnbound,
		},
		{
			name: "value placeholder past arity",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				fn := c.Functions["avg"]
				fn.Args = []string{"column"}
				fn.Template = "{column} > {value}"
				c.Functions["avg"] = fn
			},
			code: ErrPlaceholderUnbound,
		},
		{
			name: "missing connector",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Connectors = ir.Connectors{ir.ConnectorAnd: "and", ir.ConnectorOf: "of", ir.ConnectorFrom: "from"}
			},
			code: ErrConnectorMissing,
		},
		{
			name: "identity missing",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				delete(v.Deterministic, "email")
			},
			code: ErrIdentityMissing,
		},
		{
			name: "bad class",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				fn := c.Functions["sum"]
				fn.Class = "window"
				c.Functions["sum"] = fn
			},
			code: ErrInvalidFunctionClass,
		},
		{
			name: "function named like a table",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Functions["users"] = ir.Function{}
				v.Deterministic["users"] = "users"
			},
			code: ErrIDCollision,
		},
		{
			name: "id with space",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				c.Functions["st area"] = ir.Function{}
				v.Deterministic["st area"] = "st area"
			},
			code: ErrInvalidIdentifier,
		},
		{
			name: "empty ambiguous alias",
			mutate: func(c *ir.Catalog, v *ir.Vocabulary) {
				v.NonDeterministic["thing"] = nil
			},
			code: ErrAliasTargetEmpty,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := testutil.Catalog()
			v := testutil.Vocabulary()
			tc.mutate(c, &v)

			errs := Validate(c, v)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tc.code)
		})
	}
}

func TestValidate_PositionalPlaceholdersFollowArity(t *testing.T) {
	testCases := []struct {
		args     []string
		template string
		unbound  bool
	}{
		{[]string{"column"}, "{column} > {value}", true},
		{[]string{"column", "threshold"}, "{column} > {value}", false},
		{nil, "{column} > {value}", false},
		{[]string{"column"}, "MAX({columns})", false},
	}

	for _, tc := range testCases {
		t.Run(tc.template, func(t *testing.T) {
			c := testutil.Catalog()
			fn := c.Functions["avg"]
			fn.Args = tc.args
			fn.Template = tc.template
			c.Functions["avg"] = fn

			got := codes(Validate(c, testutil.Vocabulary()))
			if tc.unbound {
				assert.Contains(t, got, ErrPlaceholderUnbound)
			} else {
				assert.NotContains(t, got, ErrPlaceholderUnbound)
			}
		})
	}
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "functions.avg.template", Message: "placeholder {x} matches no argument role", Code: ErrPlaceholderUnbound}
	assert.Equal(t, "[E204] functions.avg.template: placeholder {x} matches no argument role", err.Error())
}
