package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureScenarios = "testdata/scenarios"

// scenarioDir copies the fixture scenario into a temp dir that points at the
// fixture catalog, so golden files can be written without touching testdata.
func scenarioDir(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	catalog, err := filepath.Abs(fixtureArtifacts)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(fixtureScenarios, "projections.yaml"))
	require.NoError(t, err)
	data = []byte(strings.Replace(string(data), "artifacts: ../catalog", "artifacts: "+catalog, 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projections.yaml"), data, 0644))

	for name, body := range extra {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestTestCommand_Passes(t *testing.T) {
	out, err := execute(t, NewTestCommand(rootOpts("text")), fixtureScenarios, "--jobs", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ projections (3 case(s))")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(rootOpts("json")), fixtureScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "projections", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := scenarioDir(t, nil)

	out, err := execute(t, NewTestCommand(rootOpts("text")), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ projections")

	golden := filepath.Join(dir, "golden", "projections.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"projections"`)

	_, err = execute(t, NewTestCommand(rootOpts("text")), dir)
	require.NoError(t, err)

	// A stale golden file fails the scenario even when every assertion holds.
	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"projections","cases":[]}`), 0644))
	out, err = execute(t, NewTestCommand(rootOpts("text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ projections")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_FailuresAndFilter(t *testing.T) {
	catalog, err := filepath.Abs(fixtureArtifacts)
	require.NoError(t, err)
	dir := scenarioDir(t, map[string]string{
		"wrong.yaml": "name: wrong\ndescription: \"expects the wrong SQL\"\nartifacts: " + catalog + "\n" +
			"cases:\n  - input: show age in people\n    expect:\n      sql: SELECT 1;\n",
		"broken.yaml": "name: broken\n",
		"notes.txt":   "not a scenario",
	})

	out, err := execute(t, NewTestCommand(rootOpts("text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, `sql: expected "SELECT 1;"`)
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")

	out, err = execute(t, NewTestCommand(rootOpts("text")), dir, "--filter", "proj*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := execute(t, NewTestCommand(rootOpts("text")), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")

	_, err = execute(t, NewTestCommand(rootOpts("text")), fixtureScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")

	out, err := execute(t, NewTestCommand(rootOpts("text")), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
