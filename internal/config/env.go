// env.go reads search path entries from a dotenv file, the way editors and
// task runners pass PYTHONPATH to a project's interpreter.

package config

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// PythonPathVar is the variable read from env files.
const PythonPathVar = "PYTHONPATH"

// EnvPythonPath reads the dotenv file at path and returns the entries of its
// PYTHONPATH, with relative entries resolved against the file's directory.
// A file without PYTHONPATH yields no entries.
//
// The process environment is not modified.
func EnvPythonPath(path string) ([]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to read env file %s", path), err)
	}
	value := vars[PythonPathVar]
	if value == "" {
		return nil, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve env file path: %w", err)
	}
	base := filepath.Dir(abs)

	var entries []string
	for _, p := range filepath.SplitList(value) {
		if p == "" {
			continue
		}
		entries = append(entries, resolve(base, p))
	}
	return entries, nil
}
