package resolve

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlsql/internal/binder"
	"github.com/roach88/nlsql/internal/emitter"
	"github.com/roach88/nlsql/internal/grammar"
	"github.com/roach88/nlsql/internal/testutil"
)

func newFixtureResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	c := testutil.Catalog()
	g, err := grammar.Build(c)
	require.NoError(t, err)

	base := []Option{
		WithIDGenerator(testutil.NewSequenceIDGenerator("")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(c, testutil.Vocabulary(), g, append(base, opts...)...)
}

func TestResolve_FunctionOverAlias(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show the average of age in people")

	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, "res-0001", res.ID)
	assert.Equal(t, "select avg of age from users", res.ChosenCanonical)
	assert.Equal(t, "select avg of age from users", res.SerializedCanonical)
	assert.Equal(t, `SELECT AVG("users"."age") FROM "users";`, res.SQL)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.Relaxed)
	assert.Equal(t, 1, res.Diagnostics.Considered)
	assert.Equal(t, 1, res.Diagnostics.Bound)
	assert.Equal(t, 1, res.Diagnostics.Parsed)
	assert.True(t, res.Diagnostics.Strict)
}

func TestResolve_ContextualizesBareColumn(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show name in cities")

	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, "select places.name from places", res.ChosenCanonical)
	assert.Equal(t, "select places.name from places", res.SerializedCanonical)
	assert.Equal(t, `SELECT "places"."name" FROM "places";`, res.SQL)
	require.NotEmpty(t, res.Diagnostics.Attempts)
	assert.Equal(t, []string{"context"}, res.Diagnostics.Attempts[0].Rewrites)
	assert.Equal(t, "select places.name from places", res.Diagnostics.Attempts[0].Canonical)
	assert.Equal(t, "select name from places", res.Diagnostics.Attempts[0].Candidate)
}

func TestResolve_ChosenCanonicalIsWhatBound(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show name and population in cities")

	require.True(t, res.OK, FormatError(res))
	require.NotEmpty(t, res.Diagnostics.Attempts)
	last := res.Diagnostics.Attempts[len(res.Diagnostics.Attempts)-1]
	assert.Equal(t, last.Canonical, res.ChosenCanonical)
	assert.Equal(t, "select places.name, places.population from places", res.ChosenCanonical)
	assert.Equal(t, `SELECT "places"."name", "places"."population" FROM "places";`, res.SQL)
}

func TestResolve_FunctionListAfterArgument(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show average of age and number of years in people")

	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, "select avg of age, count of age from users", res.ChosenCanonical)
	assert.Equal(t, `SELECT AVG("users"."age"), COUNT("users"."age") FROM "users";`, res.SQL)
	for _, a := range res.Diagnostics.Attempts {
		assert.Empty(t, a.Rewrites, a.Candidate)
	}
}

func TestResolve_ContextualizesUnknownBaseName(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show population in cities")

	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, `SELECT "places"."population" FROM "places";`, res.SQL)
}

func TestResolve_SanitizedList(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show name and age in people")

	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, "select name, age from users", res.ChosenCanonical)
	assert.Equal(t, "select name and age from users", res.SerializedCanonical)
	assert.Equal(t, `SELECT "users"."name", "users"."age" FROM "users";`, res.SQL)
	assert.Positive(t, res.Diagnostics.Normalizer.Rewritten)

	out := FormatResult(res, EmitBoth, true)
	assert.Contains(t, out, "(lists sanitized)")
}

func TestResolve_SpatialWarning(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show area of places.geom in cities")
	require.True(t, res.OK, FormatError(res))
	assert.Equal(t, `SELECT ST_Area("places"."geom") FROM "places";`, res.SQL)
	assert.Equal(t, []string{"Function 'st_area' looks PostGIS; SQLite may not support it."}, res.Warnings)

	res = r.ResolveRequest(Request{Text: "show area of places.geom in cities", Dialect: emitter.Postgres})
	require.True(t, res.OK)
	assert.Empty(t, res.Warnings)
}

func TestResolve_NormalizerZero(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show salary in people")

	assert.False(t, res.OK)
	assert.Equal(t, FailNormalizerZero, res.FailCategory)
	assert.Empty(t, res.SQL)
	assert.Equal(t,
		"[FAIL:normalizer_zero] No normalization candidates were produced from the input.",
		FormatError(res))
}

func TestResolve_AutoRelaxOnTypeMismatch(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show the average of name in people")

	require.True(t, res.OK, FormatError(res))
	assert.True(t, res.Relaxed)
	assert.False(t, res.Diagnostics.Strict)
	assert.Equal(t, "select avg of age from users", res.SerializedCanonical)
	assert.Equal(t, `SELECT AVG("users"."age") FROM "users";`, res.SQL)
	assert.Contains(t, FormatResult(res, EmitSQL, false), "(auto: lenient)")
}

func TestResolve_StrictWithoutAutoRelax(t *testing.T) {
	r := newFixtureResolver(t, WithAutoRelax(false))

	res := r.Resolve("show the average of name in people")

	assert.False(t, res.OK)
	assert.Equal(t, FailBinder, res.FailCategory)
	assert.Contains(t, res.Error, string(binder.KindTypeIncompatible))
	assert.NotEmpty(t, res.Diagnostics.BinderErrors)
	assert.Zero(t, res.Diagnostics.Bound)

	out := FormatError(res)
	assert.Contains(t, out, "[FAIL:binder_fail] Binding failed: ")
	assert.Contains(t, out, "- candidates tried: 2/2")
	assert.Contains(t, out, "- normalization: raw=")
}

func TestResolve_NoRelaxForStructuralFailure(t *testing.T) {
	r := newFixtureResolver(t)

	res := r.Resolve("show age and and name in people")

	assert.False(t, res.OK)
	assert.False(t, res.Relaxed)
}

func TestResolve_RequestBinderOverride(t *testing.T) {
	r := newFixtureResolver(t, WithAutoRelax(false))

	opts := binder.RelaxedOptions()
	res := r.ResolveRequest(Request{Text: "show the average of name in people", Binder: &opts})

	require.True(t, res.OK, FormatError(res))
	assert.False(t, res.Relaxed)
	assert.Equal(t, `SELECT AVG("users"."age") FROM "users";`, res.SQL)
}

func TestResolve_ParserFail(t *testing.T) {
	c := testutil.Catalog()
	g, err := grammar.Compile("query : \"select\" \"nothing\" \"from\" TABLE\nTABLE : \"users\"\n")
	require.NoError(t, err)
	r := New(c, testutil.Vocabulary(), g,
		WithIDGenerator(testutil.NewSequenceIDGenerator("")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	res := r.Resolve("select age from users")

	assert.False(t, res.OK)
	assert.Equal(t, FailParser, res.FailCategory)
	assert.Equal(t, 1, res.Diagnostics.Bound)
	assert.Zero(t, res.Diagnostics.Parsed)
	assert.Contains(t, FormatError(res), "[FAIL:parser_fail] Parsing failed: grammar rejected")
}

func TestResolve_TopKLimitsAttempts(t *testing.T) {
	r := newFixtureResolver(t, WithAutoRelax(false))

	res := r.ResolveRequest(Request{Text: "show the average of name in people", TopK: 1})

	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Diagnostics.Considered)
	assert.Len(t, res.Diagnostics.Candidates, 2)
	assert.Contains(t, FormatError(res), "- candidates tried: 1/2")
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, ClampTopK(0))
	assert.Equal(t, DefaultTopK, ClampTopK(-3))
	assert.Equal(t, 7, ClampTopK(7))
	assert.Equal(t, MaxTopK, ClampTopK(500))
}

func TestFormatResult_Modes(t *testing.T) {
	r := newFixtureResolver(t)
	res := r.Resolve("show age in people")
	require.True(t, res.OK)

	assert.Equal(t, "select age from users", FormatResult(res, EmitCanonical, false))
	assert.Equal(t, `SELECT "users"."age" FROM "users";`, FormatResult(res, EmitSQL, false))
	assert.Equal(t, "select age from users\n"+`SELECT "users"."age" FROM "users";`, FormatResult(res, EmitBoth, false))
	assert.Equal(t, `["select" "age" "from" "users"]`, FormatResult(res, EmitTokens, false))

	debug := FormatResult(res, EmitSQL, true)
	assert.Contains(t, debug, "-- diagnostics")
	assert.Contains(t, debug, "candidates=1 considered=1 bound=1 parsed=1")
	assert.Contains(t, debug, "(no list sanitation)")
}

func TestParseEmitMode(t *testing.T) {
	m, err := ParseEmitMode("SQL")
	require.NoError(t, err)
	assert.Equal(t, EmitSQL, m)

	_, err = ParseEmitMode("xml")
	assert.Error(t, err)
}

func TestResolveBatch_PreservesOrder(t *testing.T) {
	r := newFixtureResolver(t)
	reqs := []Request{
		{Text: "show age in people"},
		{Text: "show salary in people"},
		{Text: "show population in cities"},
		{Text: "show the total of age in people"},
	}

	results, err := r.ResolveBatch(context.Background(), reqs, 3)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	for i, res := range results {
		assert.Equal(t, reqs[i].Text, res.Input)
	}
	assert.Equal(t, `SELECT "users"."age" FROM "users";`, results[0].SQL)
	assert.Equal(t, FailNormalizerZero, results[1].FailCategory)
	assert.Equal(t, `SELECT "places"."population" FROM "places";`, results[2].SQL)
	assert.Equal(t, `SELECT SUM("users"."age") FROM "users";`, results[3].SQL)
}

func TestResolveBatch_Cancelled(t *testing.T) {
	r := newFixtureResolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveBatch(ctx, []Request{{Text: "show age in people"}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
