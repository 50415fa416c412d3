package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestModule_LogicalName verifies how a module's bundle name is derived.
// Entry-point modules take the file's base name; everything else keeps
// its dotted name.
func TestModule_LogicalName(t *testing.T) {
	tests := []struct {
		name   string
		module Module
		want   string
	}{
		{"dotted name kept", Module{Name: "pkg.sub", File: "/proj/pkg/sub.py"}, "pkg.sub"},
		{"entry point uses file base", Module{Name: EntryPointName, File: "/proj/scripts/train.py"}, "train"},
		{"entry point cuts at first dot", Module{Name: EntryPointName, File: "/proj/serve.v2.py"}, "serve"},
		{"entry point without file keeps name", Module{Name: EntryPointName}, EntryPointName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.module.LogicalName())
		})
	}
}

// TestSourceFileFor checks that compiled-cache paths map back to sources.
func TestSourceFileFor(t *testing.T) {
	assert.Equal(t, "/proj/a.py", SourceFileFor("/proj/a.pyc"))
	assert.Equal(t, "/proj/a.py", SourceFileFor("/proj/a.py"))
	assert.Equal(t, "/proj/data.txt", SourceFileFor("/proj/data.txt"))
	assert.Equal(t, "", SourceFileFor(""))
}

// TestModule_IsPackage verifies that only __init__.py files mark packages.
func TestModule_IsPackage(t *testing.T) {
	assert.True(t, Module{Name: "pkg", File: "/proj/pkg/__init__.py"}.IsPackage())
	assert.False(t, Module{Name: "pkg.mod", File: "/proj/pkg/mod.py"}.IsPackage())
	assert.False(t, Module{Name: "x"}.IsPackage())
}

// TestValidateModuleName checks dotted-name validation.
func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		name     string
		hasError bool
	}{
		{"pkg", false},           // valid: single identifier
		{"pkg.sub", false},       // valid: dotted
		{"_private.mod2", false}, // valid: underscores and digits
		{"", true},               // invalid: empty
		{"pkg.", true},           // invalid: trailing dot
		{".pkg", true},           // invalid: relative
		{"pkg..sub", true},       // invalid: empty component
		{"2pkg", true},           // invalid: starts with digit
		{"pkg-sub", true},        // invalid: hyphen
		{"pkg/sub", true},        // invalid: path separator
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleName(tt.name)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitModuleNotFound, "module not found")
		assert.Equal(t, ExitModuleNotFound, err.Code)
		assert.Equal(t, "module not found", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitCopyFailed, "failed to copy", inner)
		assert.Equal(t, ExitCopyFailed, err.Code)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Sentinel configuration errors must survive wrapping.
	t.Run("errors.Is chain", func(t *testing.T) {
		err := WrapCLIError(ExitConfigError, "unsupported module", ErrInteractiveModule)
		assert.True(t, errors.Is(err, ErrInteractiveModule))
		assert.False(t, errors.Is(err, ErrProjectBaseRequired))
	})
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeOf(nil))
	assert.Equal(t, ExitGeneralError, ExitCodeOf(errors.New("boom")))
	assert.Equal(t, ExitConfigError, ExitCodeOf(NewCLIError(ExitConfigError, "bad")))

	wrapped := fmt.Errorf("bundle: %w", NewCLIError(ExitGitError, "git failed"))
	assert.Equal(t, ExitGitError, ExitCodeOf(wrapped))
}
