package testutil

import "github.com/roach88/nlsql/internal/ir"

// Catalog returns a small catalog used across package tests.
//
// Tables:
//   - users: name (text), age (integer), user_id (integer, label id), email (text)
//   - places: places.name (text), places.population (integer),
//     places.geom (geometry, label postgis)
//
// users uses bare column ids, places uses dotted ones, so both naming
// styles are covered.
func Catalog() *ir.Catalog {
	numeric := ir.CompatibilityRule{AcceptedTypes: []string{"numeric"}, LabelRules: []string{"not id"}}
	return &ir.Catalog{
		Tables: map[string]ir.Table{
			"users":  {Columns: []string{"name", "age", "user_id", "email"}},
			"places": {Columns: []string{"places.name", "places.population", "places.geom"}},
		},
		Columns: map[string]ir.Column{
			"name":              {Table: "users", Type: "text", TypeCategory: "text"},
			"age":               {Table: "users", Type: "integer", TypeCategory: "numeric"},
			"user_id":           {Table: "users", Type: "integer", TypeCategory: "numeric", Labels: []string{"id"}},
			"email":             {Table: "users", Type: "text", TypeCategory: "text"},
			"places.name":       {Table: "places", Type: "text", TypeCategory: "text"},
			"places.population": {Table: "places", Type: "integer", TypeCategory: "numeric"},
			"places.geom":       {Table: "places", Type: "geometry", TypeCategory: "spatial", Labels: []string{"postgis"}},
		},
		Functions: map[string]ir.Function{
			"count": {
				Args:     []string{"column"},
				Class:    ir.ClassProjection,
				Template: "COUNT({column})",
				Returns:  "integer",
				Rule:     ir.CompatibilityRule{AcceptedTypes: []string{"any"}},
			},
			"avg": {
				Args:     []string{"column"},
				Class:    ir.ClassProjection,
				Template: "AVG({column})",
				Returns:  "numeric",
				Rule:     numeric,
			},
			"sum": {
				Args:     []string{"column"},
				Class:    ir.ClassProjection,
				Template: "SUM({column})",
				Returns:  "numeric",
				Rule:     numeric,
			},
			"lower": {
				Args:  []string{"column"},
				Class: ir.ClassProjection,
				Rule:  ir.CompatibilityRule{AcceptedTypes: []string{"text"}},
			},
			"concat": {
				Class: ir.ClassProjection,
				Rule:  ir.CompatibilityRule{AcceptedTypes: []string{"text"}},
			},
			"st_area": {
				Args:     []string{"column"},
				Class:    ir.ClassProjection,
				Template: "ST_Area({column})",
				Returns:  "numeric",
				Rule:     ir.CompatibilityRule{AcceptedTypes: []string{"geometry"}, LabelRules: []string{"postgis"}},
			},
			"order_by_asc": {
				Args:     []string{"column"},
				Class:    ir.ClassOrdering,
				Template: "{column} ASC",
			},
			"order_by_desc": {
				Args:     []string{"column"},
				Class:    ir.ClassOrdering,
				Template: "{column} DESC",
			},
		},
		Connectors: ir.DefaultConnectors(),
	}
}

// Vocabulary returns the alias vocabulary matching Catalog, with identity
// entries for every canonical id.
func Vocabulary() ir.Vocabulary {
	v := ir.Vocabulary{
		Deterministic: map[string]string{
			"show":       "select",
			"show me":    "select",
			"list":       "select",
			"what is":    "select",
			"the":        "",
			"please":     "",
			"in":         "from",
			"average":    "avg",
			"mean":       "avg",
			"number":     "count",
			"total":      "sum",
			"area":       "st_area",
			"people":     "users",
			"customers":  "users",
			"cities":     "places",
			"population": "population",
			"lowercase":  "lower",
			"years":      "age",
			"mail":       "email",
		},
		NonDeterministic: map[string][]string{
			"name":    {"name", "places.name"},
			"address": {"email", "places.geom"},
		},
	}
	return v.WithIdentities(Catalog().CanonicalIDs())
}
