package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groonga-club/grntest/internal/report"
)

// echoConfig points the harness at cat(1), which echoes every command
// line back as its "response". Good enough to exercise the whole pipeline
// without a real Groonga build.
func echoConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "grntest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groonga: cat\nargs: []\nread_timeout: 0.3\n"), 0o644))
	return path
}

func executeRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"run"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_NotCheckedWritesActual(t *testing.T) {
	dir := t.TempDir()
	cfg := echoConfig(t, dir)
	scriptPath := filepath.Join(dir, "echo.test")
	require.NoError(t, os.WriteFile(scriptPath, []byte("status\n"), 0o644))

	out, err := executeRun(t, scriptPath, "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var summary report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.NotChecked)

	// cat echoes the command; the echo is not json so it passes through.
	actual, err := os.ReadFile(filepath.Join(dir, "echo.actual"))
	require.NoError(t, err)
	assert.Equal(t, "status\nstatus\n\n", string(actual))
}

func TestRunCommand_PassesAgainstExpectation(t *testing.T) {
	dir := t.TempDir()
	cfg := echoConfig(t, dir)
	scriptPath := filepath.Join(dir, "echo.test")
	require.NoError(t, os.WriteFile(scriptPath, []byte("status\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.expected"), []byte("status\nstatus\n\n"), 0o644))

	out, err := executeRun(t, scriptPath, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "1 passed")
}

func TestRunCommand_FailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	cfg := echoConfig(t, dir)
	scriptPath := filepath.Join(dir, "echo.test")
	require.NoError(t, os.WriteFile(scriptPath, []byte("status\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.expected"), []byte("something else\n"), 0o644))

	_, err := executeRun(t, scriptPath, "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.FileExists(t, filepath.Join(dir, "echo.reject"))
}

func TestRunCommand_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := echoConfig(t, dir)
	scriptPath := filepath.Join(dir, "echo.test")
	require.NoError(t, os.WriteFile(scriptPath, []byte("status\n"), 0o644))
	dbPath := filepath.Join(dir, "runs.db")

	_, err := executeRun(t, scriptPath, "--config", cfg, "--db", dbPath)
	require.NoError(t, err)
	assert.FileExists(t, dbPath)

	// The history command can read the run back.
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--db", dbPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 not checked")
}

func TestRunCommand_MissingPath(t *testing.T) {
	_, err := executeRun(t, filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
