// Package model defines the domain types and value objects for the
// pybundle CLI.
//
// This package contains pure data structures with no external dependencies.
// Entities (Module, CopiedFile, BundleResult) exist only for the duration of
// a single bundle invocation; nothing is persisted apart from the copied
// source files themselves.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling,
// and the sentinel configuration errors raised by the bundler.
package model
