package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/script"
)

func TestTest_NoGoldenUsesAssertions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basic.yaml", passingScript)
	writeFile(t, dir, "wrong.yaml", failingScript)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ basic")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basic.yaml", passingScript)

	_, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "basic.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)

	s, err := script.LoadScript(filepath.Join(dir, "basic.yaml"))
	require.NoError(t, err)
	result, err := script.Run(s)
	require.NoError(t, err)
	want, err := script.MarshalTrace(s.Name, result.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scripts passed")
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basic.yaml", passingScript)
	writeFile(t, dir, "golden/basic.golden", "{}\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "move-a.yaml", passingScript)
	writeFile(t, dir, "copy-b.yaml", failingScript)

	out, err := execute(t, "test", dir, "--filter", "move-*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "basic.yaml", passingScript)
	writeFile(t, dir, "wrong.yaml", failingScript)

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTest_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nowhere"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_Empty(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scripts found.")
}
