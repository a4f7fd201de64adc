package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nlsql/internal/testutil"
	"github.com/roach88/nlsql/internal/tokenize"
)

func TestContextualize(t *testing.T) {
	c := testutil.Catalog()

	testCases := []struct {
		input   string
		want    string
		changed bool
	}{
		{"select name from places", "select places.name from places", true},
		{"select population from places", "select places.population from places", true},
		{"select count of name and age from places", "select count of places.name and age from places", true},
		{"select name from users", "select name from users", false},
		{"select users.name from places", "select users.name from places", false},
		{"select salary from users", "select salary from users", false},
		{"select name from nowhere", "select name from nowhere", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, changed := contextualize(tokenize.Canonical(tc.input), c)
			assert.Equal(t, tc.want, tokenize.Join(got))
			assert.Equal(t, tc.changed, changed)
		})
	}
}
