package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "groonga", cfg.Groonga)
	assert.Equal(t, []string{"-n", DatabasePlaceholder}, cfg.Args)
	assert.Equal(t, 1.0, cfg.ReadTimeout)
	assert.Equal(t, "default", cfg.OnError)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".grntest.yaml", `
groonga: /opt/groonga/bin/groonga
read_timeout: 2.5
on_error: omit
history: runs.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/groonga/bin/groonga", cfg.Groonga)
	assert.Equal(t, 2.5, cfg.ReadTimeout)
	assert.Equal(t, "omit", cfg.OnError)
	assert.Equal(t, "runs.db", cfg.History)
	// Unset keys keep their defaults.
	assert.Equal(t, []string{"-n", DatabasePlaceholder}, cfg.Args)
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".grntest.yaml", "gronga: typo\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_RejectsBadOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".grntest.yaml", "on_error: explode\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDiscover_WalksDirectories(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.test", "")
	b := writeFile(t, dir, "nested/b.test", "")
	writeFile(t, dir, "nested/readme.md", "")
	writeFile(t, dir, "b.expected", "")

	scripts, err := Discover([]string{dir}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, scripts)
}

func TestDiscover_FilterAppliesToWalkedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users-create.test", "")
	writeFile(t, dir, "status.test", "")
	explicit := writeFile(t, dir, "explicit.test", "")

	scripts, err := Discover([]string{dir, explicit}, "users-*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "users-create.test"), explicit}, scripts)
}

func TestDiscover_MissingPath(t *testing.T) {
	_, err := Discover([]string{filepath.Join(t.TempDir(), "gone")}, "")
	require.Error(t, err)
}

func TestDiscover_InvalidFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.test", "")
	_, err := Discover([]string{dir}, "[")
	require.Error(t, err)
}
