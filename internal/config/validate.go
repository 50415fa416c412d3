// validate.go checks a loaded config for values that would make a bundle
// silently wrong, such as a search path that does not exist.

package config

import (
	"fmt"
	"os"
)

// ValidationError represents a specific problem with one config field.
type ValidationError struct {
	// Field is the config key that failed validation (e.g., "searchPaths[1]").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s: %s", e.Field, e.Message)
}

// Validate checks the config's paths and option combinations. It returns a
// list of validation errors (empty list = valid configuration).
//
// Checks performed:
//   - every search path is non-empty and an existing directory
//   - projectBaseDir, when set, is an existing directory
//   - copyEntireProject is only set together with projectBaseDir
//   - envFile, when set, is an existing file
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	for i, p := range cfg.SearchPaths {
		field := fmt.Sprintf("searchPaths[%d]", i)
		if p == "" {
			errs = append(errs, ValidationError{Field: field, Message: "search path must not be empty"})
			continue
		}
		if msg := checkDir(p); msg != "" {
			errs = append(errs, ValidationError{Field: field, Message: msg})
		}
	}

	if cfg.ProjectBaseDir != "" {
		if msg := checkDir(cfg.ProjectBaseDir); msg != "" {
			errs = append(errs, ValidationError{Field: "projectBaseDir", Message: msg})
		}
	} else if cfg.CopyEntireProject {
		errs = append(errs, ValidationError{
			Field:   "copyEntireProject",
			Message: "projectBaseDir is required when copyEntireProject is set",
		})
	}

	if cfg.EnvFile != "" {
		if info, err := os.Stat(cfg.EnvFile); err != nil || info.IsDir() {
			errs = append(errs, ValidationError{
				Field:   "envFile",
				Message: fmt.Sprintf("env file %s is not a readable file", cfg.EnvFile),
			})
		}
	}

	return errs
}

// checkDir returns a message describing why path is not a usable
// directory, or "" when it is one.
func checkDir(path string) string {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("directory %s does not exist", path)
	}
	if err != nil {
		return fmt.Sprintf("cannot access %s: %v", path, err)
	}
	if !info.IsDir() {
		return fmt.Sprintf("%s is not a directory", path)
	}
	return ""
}
