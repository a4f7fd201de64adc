package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibilityRule_Accepts(t *testing.T) {
	age := Column{Table: "users", Type: "integer", TypeCategory: "numeric"}
	id := Column{Table: "users", Type: "integer", TypeCategory: "numeric", Labels: []string{"id"}}
	geom := Column{Table: "places", Type: "geometry", Labels: []string{"PostGIS"}}
	name := Column{Table: "users", Type: "text"}

	testCases := []struct {
		name string
		rule CompatibilityRule
		col  Column
		want bool
	}{
		{"empty rule is permissive", CompatibilityRule{}, name, true},
		{"any matches", CompatibilityRule{AcceptedTypes: []string{"any"}}, name, true},
		{"category match", CompatibilityRule{AcceptedTypes: []string{"numeric"}}, age, true},
		{"type match", CompatibilityRule{AcceptedTypes: []string{"INTEGER"}}, age, true},
		{"type mismatch", CompatibilityRule{AcceptedTypes: []string{"numeric"}}, name, false},
		{"required label present", CompatibilityRule{LabelRules: []string{"postgis"}}, geom, true},
		{"required label missing", CompatibilityRule{LabelRules: []string{"postgis"}}, age, false},
		{"excluded label present", CompatibilityRule{LabelRules: []string{"not id"}}, id, false},
		{"excluded label absent", CompatibilityRule{LabelRules: []string{"not id"}}, age, true},
		{
			"type ok but label excluded",
			CompatibilityRule{AcceptedTypes: []string{"numeric"}, LabelRules: []string{"not id"}},
			id,
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rule.Accepts(tc.col))
		})
	}
}

// Adding labels that no "not X" rule names never turns a compatible column
// incompatible.
func TestCompatibilityRule_Monotonic(t *testing.T) {
	rules := []CompatibilityRule{
		{},
		{AcceptedTypes: []string{"numeric"}},
		{AcceptedTypes: []string{"numeric"}, LabelRules: []string{"not id"}},
		{LabelRules: []string{"postgis", "not id"}},
	}
	base := Column{Type: "integer", TypeCategory: "numeric", Labels: []string{"postgis"}}
	extra := [][]string{{"metric"}, {"metric", "nullable"}, {"postgis"}}

	for _, r := range rules {
		if !r.Accepts(base) {
			continue
		}
		for _, more := range extra {
			col := base
			col.Labels = append(append([]string(nil), base.Labels...), more...)
			assert.True(t, r.Accepts(col), "rule %+v rejected %v", r, col.Labels)
		}
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c := &Catalog{
		Tables: map[string]Table{
			"users":  {Columns: []string{"name", "age"}},
			"places": {Columns: []string{"places.name"}},
		},
		Columns: map[string]Column{
			"name":        {Table: "users"},
			"age":         {Table: "users"},
			"places.name": {Table: "places"},
		},
		Functions: map[string]Function{
			"count":        {Args: []string{"column"}},
			"order_by_asc": {Class: ClassOrdering},
		},
	}

	assert.Equal(t, []string{"places", "users"}, c.TableIDs())
	assert.Equal(t, []string{"count"}, c.SelectableFunctionIDs())
	assert.Equal(t, []string{"age", "count", "name", "order_by_asc", "places", "places.name", "users"}, c.CanonicalIDs())

	id, ok := c.ResolveColumn("places", "name")
	assert.True(t, ok)
	assert.Equal(t, "places.name", id)

	id, ok = c.ResolveColumn("users", "age")
	assert.True(t, ok)
	assert.Equal(t, "age", id)

	_, ok = c.ResolveColumn("places", "age")
	assert.False(t, ok)

	assert.Equal(t, []string{"places.name"}, c.ColumnsByBasename("places", "name"))
	assert.Empty(t, c.ColumnsByBasename("missing", "name"))
	assert.Equal(t, "name", ColumnName("places.name"))
	assert.Equal(t, 1, c.Functions["count"].Arity())
}

func TestConnectors_Surface(t *testing.T) {
	c := Connectors{ConnectorAnd: "&"}
	assert.Equal(t, "&", c.Surface(ConnectorAnd))
	assert.Equal(t, "of", c.Surface(ConnectorOf))
}

func TestConnectors_IsSurface(t *testing.T) {
	c := Connectors{ConnectorAnd: "&"}
	assert.True(t, c.IsSurface("&"))
	assert.True(t, c.IsSurface("of"))
	assert.True(t, c.IsSurface(","))
	assert.False(t, c.IsSurface("and"))
	assert.False(t, c.IsSurface("age"))

	var none Connectors
	assert.True(t, none.IsSurface("from"))
}
