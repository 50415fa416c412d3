package bundler

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shinji-kodama/pybundle/internal/model"
	"github.com/shinji-kodama/pybundle/internal/pyimport"
)

// Locator resolves a dotted module name to its source file.
// *pyimport.Finder and *pyimport.Locator satisfy it.
type Locator interface {
	Locate(name string) (string, error)
}

// ModuleRef identifies the module to bundle. Use ByName, ByHandle or
// EntryPoint to build one.
type ModuleRef interface {
	// Resolve returns the module the reference denotes, with an absolute
	// File.
	Resolve(l Locator) (model.Module, error)
}

// ByName refers to a module by its dotted name, resolved on the
// locator's search path.
func ByName(name string) ModuleRef {
	return nameRef(name)
}

// ByHandle refers to an already located module.
func ByHandle(m model.Module) ModuleRef {
	return handleRef(m)
}

// EntryPoint refers to the script that starts a program. An empty file
// denotes an interactive session, which cannot be bundled.
func EntryPoint(file string) ModuleRef {
	return handleRef(model.Module{Name: model.EntryPointName, File: file})
}

type nameRef string

func (r nameRef) Resolve(l Locator) (model.Module, error) {
	name := string(r)
	if name == model.EntryPointName {
		// The entry point cannot be looked up by name; it has no file
		// anyone could import it from.
		return model.Module{}, interactiveError()
	}
	if err := model.ValidateModuleName(name); err != nil {
		return model.Module{}, model.WrapCLIError(model.ExitConfigError, "invalid module reference", err)
	}

	file, err := l.Locate(name)
	if err != nil {
		var notFound *pyimport.ModuleNotFoundError
		if errors.As(err, &notFound) {
			return model.Module{}, model.WrapCLIError(model.ExitModuleNotFound, fmt.Sprintf("module %s not found", name), err)
		}
		return model.Module{}, fmt.Errorf("failed to locate module %s: %w", name, err)
	}
	return absModule(model.Module{Name: name, File: file})
}

type handleRef model.Module

func (r handleRef) Resolve(Locator) (model.Module, error) {
	m := model.Module(r)
	if m.File == "" {
		if m.IsEntryPoint() {
			return model.Module{}, interactiveError()
		}
		return model.Module{}, model.NewCLIError(model.ExitModuleNotFound, fmt.Sprintf("module %s has no source file", m.Name))
	}
	return absModule(m)
}

func absModule(m model.Module) (model.Module, error) {
	abs, err := filepath.Abs(m.File)
	if err != nil {
		return model.Module{}, fmt.Errorf("failed to resolve path of module %s: %w", m.Name, err)
	}
	m.File = abs
	return m, nil
}

func interactiveError() error {
	return model.WrapCLIError(model.ExitConfigError, "cannot bundle the entry-point module", model.ErrInteractiveModule)
}
