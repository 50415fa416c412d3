package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// testdataPath returns the absolute path to a fixture directory.
func testdataPath(t *testing.T, fixture string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("testdata", fixture))
	require.NoError(t, err)
	return abs
}

// TestLoad_YAML verifies YAML decoding and that relative paths are anchored
// at the config file's directory while absolute ones are kept.
func TestLoad_YAML(t *testing.T) {
	dir := testdataPath(t, "yaml")

	cfg, err := Load(filepath.Join(dir, ".pybundle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".pybundle.yaml"), cfg.Path)
	assert.Equal(t, []string{filepath.Join(dir, "src"), "/opt/shared/python"}, cfg.SearchPaths)
	assert.Equal(t, filepath.Dir(dir), cfg.ProjectBaseDir)
	assert.False(t, cfg.CopyEntireProject)
}

// TestLoad_JSONC verifies that comments and trailing commas are accepted
// in the JSON form.
func TestLoad_JSONC(t *testing.T) {
	dir := testdataPath(t, "jsonc")

	cfg, err := Load(filepath.Join(dir, ".pybundle.json"))
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "lib")}, cfg.SearchPaths)
	assert.Equal(t, filepath.Join(dir, "project"), cfg.ProjectBaseDir)
	assert.True(t, cfg.CopyEntireProject)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".pybundle.yaml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml type mismatch", ".pybundle.yaml", "searchPaths: {a: 1}\n"},
		{"yaml syntax", ".pybundle.yml", "searchPaths: [unclosed\n"},
		{"json syntax", ".pybundle.json", "{\"searchPaths\": [\"a\" \"b\"]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))
		})
	}
}

// TestFind verifies the lookup order when several config files coexist.
func TestFind(t *testing.T) {
	dir := testdataPath(t, "both")

	path, ok := Find(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, ".pybundle.yml"), path, "YAML takes precedence over JSON")

	_, ok = Find(t.TempDir())
	assert.False(t, ok)
}

func TestDiscover(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Path, "no file means an empty config")
	assert.Empty(t, cfg.SearchPaths)

	dir := testdataPath(t, "both")
	cfg, err = Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "from-yml")}, cfg.SearchPaths)
}

// TestLoad_Pyproject verifies that only the [tool.pybundle] table is read
// and that its kebab-case keys map onto Config.
func TestLoad_Pyproject(t *testing.T) {
	dir := testdataPath(t, "pyproject")

	cfg, err := Load(filepath.Join(dir, PyprojectFile))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "src")}, cfg.SearchPaths)
	assert.Equal(t, dir, cfg.ProjectBaseDir)
	assert.Equal(t, filepath.Join(dir, ".env"), cfg.EnvFile)
	assert.False(t, cfg.CopyEntireProject)
}

func TestLoad_PyprojectWithoutTable(t *testing.T) {
	dir := testdataPath(t, "pyproject-other")

	cfg, err := Load(filepath.Join(dir, PyprojectFile))
	require.NoError(t, err)
	assert.Empty(t, cfg.SearchPaths)
	assert.Empty(t, cfg.ProjectBaseDir)
	assert.Equal(t, filepath.Join(dir, PyprojectFile), cfg.Path)
}

func TestFind_Pyproject(t *testing.T) {
	dir := testdataPath(t, "pyproject")
	path, ok := Find(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, PyprojectFile), path)

	_, ok = Find(testdataPath(t, "pyproject-other"))
	assert.False(t, ok, "a pyproject.toml without [tool.pybundle] is not a config file")

	// Dedicated files win over pyproject.toml.
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, PyprojectFile), []byte("[tool.pybundle]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".pybundle.json"), []byte("{}"), 0644))
	path, ok = Find(tmp)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(tmp, ".pybundle.json"), path)
}

func TestLoad_PyprojectMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), PyprojectFile)
	require.NoError(t, os.WriteFile(path, []byte("[tool.pybundle\nsearch-paths = 1\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))
}

func TestEnvPythonPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture uses the POSIX list separator")
	}
	dir := testdataPath(t, "env")

	entries, err := EnvPythonPath(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/python/shared"}, entries)

	entries, err = EnvPythonPath(filepath.Join(dir, "empty.env"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = EnvPythonPath(filepath.Join(dir, "missing.env"))
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))
}
