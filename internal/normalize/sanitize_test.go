package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nlsql/internal/ir"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"plain and", "select a and b from t", "select a, b from t", true},
		{"oxford", "select a, b, and c from t", "select a, b, c from t", true},
		{"chained and", "select a and b and c from t", "select a, b, c from t", true},
		{"already commas", "select a , b from t", "select a, b from t", false},
		{"no list", "select a from t", "select a from t", false},
		{"and inside args", "select avg of a and b from t", "select avg of a, b from t", true},
		{"and after of untouched", "select count of and from t", "select count of and from t", false},
		{"stray comma and comma", "select a, and, b from t", "select a, and, b from t", false},
		{"double comma", "select a , , b from t", "select a, b from t", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := Sanitize(tc.in, nil)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.changed, changed)
		})
	}
}

func TestSanitize_CatalogConnectors(t *testing.T) {
	conn := ir.Connectors{ir.ConnectorAnd: "plus", ir.ConnectorOf: "over", ir.ConnectorFrom: "in", ir.ConnectorComma: ","}

	testCases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"custom and", "select a plus b in t", "select a, b in t", true},
		{"custom oxford", "select a, b, plus c in t", "select a, b, c in t", true},
		{"custom and after of surface", "select count over plus in t", "select count over plus in t", false},
		{"custom and before from surface", "select a plus in t", "select a plus in t", false},
		{"default and is an item", "select a and b in t", "select a and b in t", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := Sanitize(tc.in, conn)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.changed, changed)
		})
	}
}
