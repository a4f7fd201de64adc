package emitter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlsql/internal/ir"
	"github.com/roach88/nlsql/internal/testutil"
)

func col(id string) ir.ColumnRef { return ir.ColumnRef{ID: id} }

func call(fn string, args ...ir.Selectable) ir.FunctionCall {
	return ir.FunctionCall{Function: fn, Args: args}
}

func TestEmit_SingleColumn(t *testing.T) {
	e := New(testutil.Catalog())

	res, err := e.Emit(ir.Binding{Items: []ir.Selectable{col("age")}, Table: "users"}, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "users"."age" FROM "users";`, res.SQL)
	assert.Empty(t, res.Warnings)
}

func TestEmit_DottedColumnUsesBaseName(t *testing.T) {
	e := New(testutil.Catalog())

	res, err := e.Emit(ir.Binding{Items: []ir.Selectable{col("places.population")}, Table: "places"}, Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "places"."population" FROM "places";`, res.SQL)
}

func TestEmit_ColumnQualifiedWithOwningTable(t *testing.T) {
	e := New(testutil.Catalog())

	// A catalog-wide coercion can leave a column from another table.
	b := ir.Binding{Items: []ir.Selectable{call("avg", col("places.population"))}, Table: "users"}
	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT AVG("places"."population") FROM "users";`, res.SQL)
}

func TestEmit_TemplateFunction(t *testing.T) {
	e := New(testutil.Catalog())

	b := ir.Binding{Items: []ir.Selectable{call("avg", col("age")), call("count", col("name"))}, Table: "users"}
	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT AVG("users"."age"), COUNT("users"."name") FROM "users";`, res.SQL)
}

func TestEmit_FunctionWithoutTemplate(t *testing.T) {
	e := New(testutil.Catalog())

	b := ir.Binding{Items: []ir.Selectable{call("lower", col("name"))}, Table: "users"}
	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT lower("users"."name") FROM "users";`, res.SQL)
}

func TestEmit_VariadicFunction(t *testing.T) {
	e := New(testutil.Catalog())

	b := ir.Binding{Items: []ir.Selectable{call("concat", col("name"), col("email"))}, Table: "users"}
	res, err := e.Emit(b, MySQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT concat(`users`.`name`, `users`.`email`) FROM `users`;", res.SQL)
}

func TestEmit_SpatialWarning(t *testing.T) {
	e := New(testutil.Catalog())
	b := ir.Binding{Items: []ir.Selectable{call("st_area", col("places.geom"))}, Table: "places"}

	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT ST_Area("places"."geom") FROM "places";`, res.SQL)
	assert.Equal(t, []string{"Function 'st_area' looks PostGIS; SQLite may not support it."}, res.Warnings)

	res, err = e.Emit(b, Postgres)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestEmit_SpatialWarningOncePerStatement(t *testing.T) {
	e := New(testutil.Catalog())
	b := ir.Binding{
		Items: []ir.Selectable{call("st_area", col("places.geom")), call("st_area", col("places.geom"))},
		Table: "places",
	}

	res, err := e.Emit(b, DuckDB)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "DuckDB")
}

func TestEmit_ExtraArgumentsTruncated(t *testing.T) {
	e := New(testutil.Catalog())

	b := ir.Binding{Items: []ir.Selectable{call("count", col("name"), col("age"))}, Table: "users"}
	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT("users"."name") FROM "users";`, res.SQL)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "ignoring 1 extra")
}

func TestEmit_MissingTemplateArgument(t *testing.T) {
	c := testutil.Catalog()
	e := New(c)

	_, err := e.Emit(ir.Binding{Items: []ir.Selectable{call("count")}, Table: "users"}, SQLite)
	require.Error(t, err)
	assert.True(t, IsTemplateError(err))

	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "count", te.Function)
	assert.Equal(t, "column", te.Placeholder)
}

func TestEmit_TemplateRolesAndTable(t *testing.T) {
	c := testutil.Catalog()
	c.Functions["pct"] = ir.Function{
		Args:     []string{"part", "whole"},
		Template: "100.0 * {part} / {whole}",
		Rule:     ir.CompatibilityRule{AcceptedTypes: []string{"numeric"}},
	}
	c.Functions["row_count"] = ir.Function{
		Args:     []string{"column"},
		Template: "(SELECT COUNT(*) FROM {table})",
	}
	c.Functions["coalesce_all"] = ir.Function{Template: "COALESCE({columns})"}
	e := New(c)

	b := ir.Binding{
		Items: []ir.Selectable{
			call("pct", col("age"), col("user_id")),
			call("row_count", col("age")),
			call("coalesce_all", col("name"), col("email")),
		},
		Table: "users",
	}
	res, err := e.Emit(b, SQLite)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT 100.0 * "users"."age" / "users"."user_id", (SELECT COUNT(*) FROM "users"), COALESCE("users"."name", "users"."email") FROM "users";`,
		res.SQL)
}

func TestEmit_UnknownPlaceholder(t *testing.T) {
	c := testutil.Catalog()
	c.Functions["odd"] = ir.Function{Args: []string{"column"}, Template: "ODD({column}, {mystery})"}
	e := New(c)

	_, err := e.Emit(ir.Binding{Items: []ir.Selectable{call("odd", col("age"))}, Table: "users"}, SQLite)
	require.Error(t, err)
	var te *TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "mystery", te.Placeholder)
}

func TestEmit_EmptyBinding(t *testing.T) {
	e := New(testutil.Catalog())

	_, err := e.Emit(ir.Binding{Table: "users"}, SQLite)
	assert.Error(t, err)

	_, err = e.Emit(ir.Binding{Items: []ir.Selectable{col("age")}}, SQLite)
	assert.Error(t, err)
}

func TestEmitCanonical(t *testing.T) {
	e := New(testutil.Catalog())

	res, err := e.EmitCanonical("select age from users", SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "users"."age" FROM "users";`, res.SQL)

	_, err = e.EmitCanonical("select bogus from users", SQLite)
	assert.Error(t, err)
}

func TestEmit_VerifyWarning(t *testing.T) {
	c := testutil.Catalog()
	c.Functions["broken"] = ir.Function{Args: []string{"column"}, Template: "BROKEN({column}"}
	e := New(c, WithVerify(true))

	res, err := e.Emit(ir.Binding{Items: []ir.Selectable{call("broken", col("age"))}, Table: "users"}, Postgres)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "PostgreSQL syntax check failed")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"part", "whole"}, Placeholders("{part} / {whole} + {part}"))
	assert.Empty(t, Placeholders("COUNT(*)"))

	testCases := []struct {
		args        []string
		placeholder string
		want        bool
	}{
		{[]string{"part"}, "part", true},
		{[]string{"part"}, "table", true},
		{[]string{"part"}, "whole", false},
		{nil, "column", true},
		{nil, "value", true},
		{[]string{"part"}, "column", true},
		{[]string{"part"}, "columns", true},
		{[]string{"column"}, "value", false},
		{[]string{"column", "threshold"}, "value", true},
		{[]string{"value"}, "value", true},
	}

	for _, tc := range testCases {
		fn := ir.Function{Args: tc.args}
		assert.Equal(t, tc.want, KnownPlaceholder(fn, tc.placeholder), "%v {%s}", tc.args, tc.placeholder)
	}
}

func TestEmit_ValueBeyondArityFails(t *testing.T) {
	c := testutil.Catalog()
	c.Functions["above"] = ir.Function{Args: []string{"column"}, Template: "{column} > {value}"}
	e := New(c)

	_, err := e.Emit(ir.Binding{Items: []ir.Selectable{call("above", col("age"), col("age"))}, Table: "users"}, Postgres)
	require.Error(t, err)
	assert.False(t, KnownPlaceholder(c.Functions["above"], "value"))
}

func TestEmit_Golden(t *testing.T) {
	e := New(testutil.Catalog())
	canonicals := []string{
		"select age from users",
		"select name, age, and email from users",
		"select avg of age and count of name from users",
		"select lower of name from users",
		"select st_area of places.geom from places",
	}

	var out strings.Builder
	for _, d := range Dialects {
		fmt.Fprintf(&out, "-- %s\n", d)
		for _, c := range canonicals {
			res, err := e.EmitCanonical(c, d)
			require.NoError(t, err, c)
			fmt.Fprintln(&out, res.SQL)
			for _, w := range res.Warnings {
				fmt.Fprintf(&out, "   warning: %s\n", w)
			}
		}
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "dialects", []byte(out.String()))
}
