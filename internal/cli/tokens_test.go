package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensCommand(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"text keeps apostrophes", []string{"show", "user's age"}, `["show" "user's" "age"]` + "\n"},
		{"canonical splits apostrophes", []string{"--canonical", "user's"}, `["user" "'" "s"]` + "\n"},
		{"operators and dotted names", []string{"users.age >= 3"}, `["users.age" ">=" "3"]` + "\n"},
		{"blank text", []string{"  "}, "[]\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, NewTokensCommand(rootOpts("text")), tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestTokensCommand_JSON(t *testing.T) {
	out, err := execute(t, NewTokensCommand(rootOpts("json")), "count", "of", "people")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   TokensResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, TokensResult{Input: "count of people", Tokens: []string{"count", "of", "people"}}, resp.Data)
}

func TestTokensCommand_NoArgs(t *testing.T) {
	_, err := execute(t, NewTokensCommand(rootOpts("text")))
	require.Error(t, err)
}
