// Package model defines the domain types for the pybundle CLI.
//
// These types are passed between the discovery layer (pyimport), the
// version-control layer (repo), the bundler, and the CLI output code.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// EntryPointName is the module name Python gives to the script that
	// started the program, as opposed to a module imported as a library.
	EntryPointName = "__main__"

	// PackageInitFile is the marker file that turns a directory into an
	// importable package.
	PackageInitFile = "__init__.py"

	// SourceExt is the extension of Python source files.
	SourceExt = ".py"

	// CompiledExt is the extension of compiled-cache files left next to
	// sources by older interpreters.
	CompiledExt = ".pyc"
)

// Module describes a Python module that has been located on disk.
//
// It is the Go counterpart of a loaded module object: a dotted name and the
// file it was loaded from. File may be empty for the entry-point module of an
// interactive session, which has no backing file.
type Module struct {
	// Name is the dotted module name (e.g., "pkg.sub"), or EntryPointName.
	Name string `json:"name"`

	// File is the path to the module's source file.
	File string `json:"file,omitempty"`
}

// IsEntryPoint reports whether the module is the program's entry point.
func (m Module) IsEntryPoint() bool {
	return m.Name == EntryPointName
}

// IsPackage reports whether the module is a package initializer.
func (m Module) IsPackage() bool {
	return filepath.Base(m.File) == PackageInitFile
}

// LogicalName returns the name the module is bundled under.
//
// An entry-point module with a file takes its name from the file's base name
// up to the first dot, so "scripts/train.py" becomes "train". All other
// modules keep their dotted name.
func (m Module) LogicalName() string {
	if m.IsEntryPoint() && m.File != "" {
		base := filepath.Base(m.File)
		name, _, _ := strings.Cut(base, ".")
		return name
	}
	return m.Name
}

// SourceFile returns the module's source path, mapping a compiled-cache
// file ("x.pyc") back to the source it was compiled from ("x.py").
func (m Module) SourceFile() string {
	return SourceFileFor(m.File)
}

// SourceFileFor normalizes a compiled-cache path to its source path.
// Paths that are not compiled-cache files are returned unchanged.
func SourceFileFor(path string) string {
	if strings.HasSuffix(path, CompiledExt) {
		return strings.TrimSuffix(path, "c")
	}
	return path
}

// moduleNameRegex validates dotted Python module names: one or more
// identifiers separated by single dots.
var moduleNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateModuleName checks that name is a syntactically valid dotted
// module name.
func ValidateModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("module name must not be empty")
	}
	if !moduleNameRegex.MatchString(name) {
		return fmt.Errorf("invalid module name %q: must be dot-separated Python identifiers", name)
	}
	return nil
}

// CopiedFile records one module written into the destination tree.
type CopiedFile struct {
	// Module is the dotted module name the file was copied for.
	Module string `json:"module"`

	// Source is the absolute path the bytes were read from.
	Source string `json:"source"`

	// Target is the path the bytes were written to.
	Target string `json:"target"`
}

// BundleResult describes the outcome of a bundle invocation.
//
// ModuleName and ModuleFile identify the bundled module itself; the other
// fields report what was copied and how the project boundary was chosen.
type BundleResult struct {
	// ModuleName is the logical name of the bundled module.
	ModuleName string `json:"moduleName"`

	// ModuleFile is the module's original source file.
	ModuleFile string `json:"moduleFile"`

	// Destination is the root of the produced tree.
	Destination string `json:"destination"`

	// ProjectBase is the directory used to decide which modules belong to
	// the project. For whole-project copies it is the copied directory.
	ProjectBase string `json:"projectBase"`

	// EntireProject is true when the whole project directory was copied
	// instead of running dependency discovery.
	EntireProject bool `json:"entireProject"`

	// PartialScan is true when discovery stopped early on a syntax error
	// and the bundle only holds what was found before that point.
	PartialScan bool `json:"partialScan,omitempty"`

	// Files lists the module files copied into the destination, sorted by
	// module name. Empty for whole-project copies.
	Files []CopiedFile `json:"files,omitempty"`

	// InitFiles lists the empty package initializers created afterwards.
	InitFiles []string `json:"initFiles,omitempty"`
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the invocation itself is unsupported or
	// incomplete (e.g., an interactive module, a missing project base).
	ExitConfigError ExitCode = 2

	// ExitModuleNotFound indicates the target module could not be located
	// on the search path.
	ExitModuleNotFound ExitCode = 3

	// ExitCopyFailed indicates a filesystem operation failed while
	// populating the destination tree.
	ExitCopyFailed ExitCode = 4

	// ExitGitError indicates a Git query failed.
	ExitGitError ExitCode = 5
)

// Sentinel configuration errors. The bundler wraps them in a CLIError with
// ExitConfigError, so callers can match them with errors.Is.
var (
	// ErrInteractiveModule is returned when the target is the entry-point
	// module of an interactive session and has no source file to bundle.
	ErrInteractiveModule = errors.New("module defined in an interactive session has no source file")

	// ErrProjectBaseRequired is returned when a whole-project copy is
	// requested without naming the project directory.
	ErrProjectBaseRequired = errors.New("project base dir is required when copying the entire project")
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf returns the exit code carried by err, looking through wrapped
// errors. Errors without a CLIError in their chain map to ExitGeneralError.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
