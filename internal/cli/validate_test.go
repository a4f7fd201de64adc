package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlsql/internal/artifacts"
	"github.com/roach88/nlsql/internal/compiler"
)

func TestValidateCommand_Valid(t *testing.T) {
	out, err := execute(t, NewValidateCommand(rootOpts("text")), fixtureArtifacts)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid (")
}

func TestValidateCommand_ValidJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(rootOpts("json")), fixtureArtifacts, "--samples", "200", "--seed", "99")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateCommand_Violations(t *testing.T) {
	out, err := execute(t, NewValidateCommand(rootOpts("text")), "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "  E204: functions.buffer.template: placeholder {radius} matches no argument role")
}

func TestValidateCommand_ViolationsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(rootOpts("json")), "testdata/invalid")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, compiler.ErrPlaceholderUnbound, resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
}

func TestValidateCommand_MissingDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(rootOpts("text")), "/nonexistent/catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+artifacts.ErrCodeNotFound+"]")
}

func TestGateErrors(t *testing.T) {
	single := gateErrors(&artifacts.LoadError{Code: artifacts.ErrCodeGate, Message: "grammar rejected"})
	assert.Equal(t, []compiler.ValidationError{{Field: "grammar", Message: "grammar rejected", Code: artifacts.ErrCodeGate}}, single)

	violations := []compiler.ValidationError{{Field: "tables", Message: "at least one table is required", Code: compiler.ErrNoTables}}
	assert.Equal(t, violations, gateErrors(&artifacts.LoadError{Code: artifacts.ErrCodeGate, Violations: violations}))
}
