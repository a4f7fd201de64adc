package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabulary_WithIdentities(t *testing.T) {
	v := Vocabulary{
		Deterministic:    map[string]string{"people": "users", "age": "years"},
		NonDeterministic: map[string][]string{"name": {"name", "places.name"}},
	}

	got := v.WithIdentities([]string{"users", "name", "age"})

	assert.Equal(t, "users", got.Deterministic["users"])
	assert.Equal(t, []string{"name", "places.name"}, got.NonDeterministic["name"])
	// A conflicting deterministic entry becomes ambiguous, keeping both.
	assert.Equal(t, []string{"years", "age"}, got.NonDeterministic["age"])
	assert.NotContains(t, got.Deterministic, "age")

	// CRITICAL: the receiver is not modified
	assert.Equal(t, "years", v.Deterministic["age"])
	assert.NotContains(t, v.Deterministic, "users")
}

func TestIsKeyword(t *testing.T) {
	for _, k := range []string{"select", "from", "of", "and", "or", ","} {
		assert.True(t, IsKeyword(k), k)
	}
	assert.False(t, IsKeyword("users"))
}
