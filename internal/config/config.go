// Package config loads the optional pybundle project configuration file.
//
// A project may carry one of the following files in its root (searched in
// this order):
//
//	.pybundle.yaml
//	.pybundle.yml
//	.pybundle.json
//	pyproject.toml    (only when it has a [tool.pybundle] table)
//
// YAML files are decoded with gopkg.in/yaml.v3. The JSON form accepts
// comments and trailing commas; github.com/tidwall/jsonc strips them before
// the standard encoding/json decoder runs. pyproject.toml is decoded with
// github.com/pelletier/go-toml/v2 and uses the kebab-case key names
// customary there (search-paths, project-base-dir, copy-entire-project,
// env-file).
//
// Relative paths inside the file are resolved against the directory that
// contains the file, so the same config works no matter where the CLI is
// invoked from. Command-line flags always take precedence over file values;
// that merge happens in the cli package.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// FileNames lists the dedicated config file names looked up by Find, in
// priority order.
var FileNames = []string{".pybundle.yaml", ".pybundle.yml", ".pybundle.json"}

// PyprojectFile is the standard Python project file. Find falls back to it
// when none of FileNames exists.
const PyprojectFile = "pyproject.toml"

// Config holds the bundling options a project can pin in its config file.
type Config struct {
	// SearchPaths are extra directories for resolving module names, in
	// lookup order.
	SearchPaths []string `yaml:"searchPaths" json:"searchPaths" toml:"search-paths"`

	// ProjectBaseDir overrides the project boundary detection.
	ProjectBaseDir string `yaml:"projectBaseDir" json:"projectBaseDir" toml:"project-base-dir"`

	// CopyEntireProject copies ProjectBaseDir verbatim instead of running
	// dependency discovery.
	CopyEntireProject bool `yaml:"copyEntireProject" json:"copyEntireProject" toml:"copy-entire-project"`

	// EnvFile is a dotenv file whose PYTHONPATH extends the search path.
	EnvFile string `yaml:"envFile" json:"envFile" toml:"env-file"`

	// Path is the file the config was read from. Empty when no file was found.
	Path string `yaml:"-" json:"-" toml:"-"`
}

// pyproject is the part of pyproject.toml pybundle reads.
type pyproject struct {
	Tool struct {
		Pybundle *Config `toml:"pybundle"`
	} `toml:"tool"`
}

// Find returns the first config file present in dir, following FileNames
// order, then pyproject.toml if it has a [tool.pybundle] table. ok is false
// when dir holds none of them.
func Find(dir string) (path string, ok bool) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if isRegular(candidate) {
			return candidate, true
		}
	}
	candidate := filepath.Join(dir, PyprojectFile)
	if isRegular(candidate) && hasPybundleTable(candidate) {
		return candidate, true
	}
	return "", false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// hasPybundleTable reports whether the pyproject file decodes and holds a
// [tool.pybundle] table. A malformed file counts as not configuring
// pybundle, since other tools own it.
func hasPybundleTable(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc pyproject
	return toml.Unmarshal(data, &doc) == nil && doc.Tool.Pybundle != nil
}

// Discover loads the config file in dir, or returns an empty Config when
// there is none.
func Discover(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return &Config{}, nil
	}
	return Load(path)
}

// Load reads and decodes the config file at path. The format is chosen by
// extension: ".json" is JSONC, ".toml" is a pyproject file read from its
// [tool.pybundle] table, anything else is YAML. A pyproject file without
// that table yields an empty Config.
//
// A missing or malformed file returns a CLIError with ExitConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	case ".toml":
		var doc pyproject
		err = toml.Unmarshal(data, &doc)
		if err == nil && doc.Tool.Pybundle != nil {
			cfg = *doc.Tool.Pybundle
		}
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to parse config file %s", path), err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.Path = abs
	cfg.resolvePaths(filepath.Dir(abs))
	return &cfg, nil
}

// resolvePaths anchors relative paths at base.
func (c *Config) resolvePaths(base string) {
	for i, p := range c.SearchPaths {
		c.SearchPaths[i] = resolve(base, p)
	}
	if c.ProjectBaseDir != "" {
		c.ProjectBaseDir = resolve(base, c.ProjectBaseDir)
	}
	if c.EnvFile != "" {
		c.EnvFile = resolve(base, c.EnvFile)
	}
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
