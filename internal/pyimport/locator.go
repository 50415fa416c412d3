package pyimport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// ModuleNotFoundError is returned when a dotted name cannot be resolved on
// the search path.
type ModuleNotFoundError struct {
	Name string
	// Paths is the search path that was tried.
	Paths []string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no module named %q (search path: %s)", e.Name, strings.Join(e.Paths, string(os.PathListSeparator)))
}

// location is where a single name component was found.
type location struct {
	// file is the module's source, or package's __init__.py. Empty for
	// namespace packages.
	file string
	// dir is the package directory. Empty for plain modules.
	dir string
}

func (s location) isPackage() bool {
	return s.dir != ""
}

// Locator resolves dotted module names against an ordered search path.
type Locator struct {
	paths []string
}

// NewLocator creates a Locator over the given directories. Relative
// directories are made absolute; empty and duplicate entries are dropped.
func NewLocator(paths ...string) *Locator {
	return &Locator{paths: normalizePaths(paths)}
}

// SearchPath builds the default search path: the given directories
// followed by the entries of $PYTHONPATH.
func SearchPath(dirs ...string) []string {
	all := append([]string{}, dirs...)
	if env := os.Getenv("PYTHONPATH"); env != "" {
		all = append(all, filepath.SplitList(env)...)
	}
	return normalizePaths(all)
}

// Paths returns the search path in lookup order.
func (l *Locator) Paths() []string {
	return append([]string(nil), l.paths...)
}

// With returns a Locator that searches dirs before the receiver's paths.
// It is used to put an entry script's directory first, the way the
// interpreter does for the script it starts.
func (l *Locator) With(dirs ...string) *Locator {
	return NewLocator(append(append([]string{}, dirs...), l.paths...)...)
}

// Locate returns the source file of the named module.
//
// Packages resolve to their __init__.py. A namespace package has no
// source file and is reported as not found.
func (l *Locator) Locate(name string) (string, error) {
	if err := model.ValidateModuleName(name); err != nil {
		return "", err
	}

	dirs := l.paths
	parts := strings.Split(name, ".")
	for i, part := range parts {
		s, ok := find(part, dirs)
		if !ok {
			return "", &ModuleNotFoundError{Name: name, Paths: l.Paths()}
		}
		if i == len(parts)-1 {
			if s.file == "" {
				return "", &ModuleNotFoundError{Name: name, Paths: l.Paths()}
			}
			return s.file, nil
		}
		if !s.isPackage() {
			return "", &ModuleNotFoundError{Name: name, Paths: l.Paths()}
		}
		dirs = []string{s.dir}
	}
	return "", &ModuleNotFoundError{Name: name, Paths: l.Paths()}
}

// find looks up one name component in dirs.
//
// Within a directory a regular package wins over a plain module of the same
// name. A directory without __init__.py only counts as a namespace package
// when no directory on the path provides a regular package or module.
func find(part string, dirs []string) (location, bool) {
	var namespace string
	for _, dir := range dirs {
		pkgDir := filepath.Join(dir, part)
		if isDir(pkgDir) {
			initFile := filepath.Join(pkgDir, model.PackageInitFile)
			if isFile(initFile) {
				return location{file: initFile, dir: pkgDir}, true
			}
		}
		modFile := filepath.Join(dir, part+model.SourceExt)
		if isFile(modFile) {
			return location{file: modFile}, true
		}
		if namespace == "" && isDir(pkgDir) {
			namespace = pkgDir
		}
	}
	if namespace != "" {
		return location{dir: namespace}, true
	}
	return location{}, false
}

// submodules lists the module names directly inside a package directory:
// plain modules and subdirectories that are regular packages.
func submodules(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if isFile(filepath.Join(dir, name, model.PackageInitFile)) && isIdentifier(name) {
				names = append(names, name)
			}
			continue
		}
		stem := strings.TrimSuffix(name, model.SourceExt)
		if stem != name && stem != "__init__" && isIdentifier(stem) {
			names = append(names, stem)
		}
	}
	return names
}

func isIdentifier(name string) bool {
	return !strings.Contains(name, ".") && model.ValidateModuleName(name) == nil
}

func normalizePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
