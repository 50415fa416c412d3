package bundler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/pybundle/internal/model"
	"github.com/shinji-kodama/pybundle/internal/pyimport"
	"github.com/shinji-kodama/pybundle/internal/repo"
)

// ImportFinder discovers the modules a source file transitively imports.
//
// FindImports runs discovery from file, loaded as module name, and
// returns a map from module name to source file. On a *pyimport.SyntaxError
// it returns the modules found before the error along with it.
type ImportFinder interface {
	FindImports(name, file string) (map[string]string, error)
}

// RootFinder reports the version-control root enclosing a path.
// *repo.Manager satisfies it.
type RootFinder interface {
	GetRepoRoot(path string) (string, error)
}

// Options controls a single Bundle call.
type Options struct {
	// ProjectBaseDir limits the copy to modules under this directory.
	// Relative paths are made absolute. When empty, the Git top-level
	// directory of the module is used, or the parent of the module's
	// directory outside a repository.
	ProjectBaseDir string

	// CopyEntireProject copies ProjectBaseDir verbatim instead of
	// discovering imports. ProjectBaseDir is required in this mode.
	CopyEntireProject bool
}

// Bundler produces module bundles. It holds no per-call state.
type Bundler struct {
	locator Locator
	finder  ImportFinder
	roots   RootFinder
	logger  *log.Logger
}

// New creates a Bundler. A nil roots queries the git found on PATH; a nil
// logger discards output.
func New(locator Locator, finder ImportFinder, roots RootFinder, logger *log.Logger) *Bundler {
	if roots == nil {
		roots = repo.NewManager()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bundler{
		locator: locator,
		finder:  finder,
		roots:   roots,
		logger:  logger,
	}
}

// NewWithFinder creates a Bundler that both locates and discovers modules
// with f.
func NewWithFinder(f *pyimport.Finder, logger *log.Logger) *Bundler {
	return New(f, f, nil, logger)
}

// Bundle copies the module ref denotes, and the project modules it
// imports, into destination.
//
// Invoking it on the entry point of an interactive session, or requesting
// a whole-project copy without ProjectBaseDir, fails with a CLIError of
// code ExitConfigError before the filesystem is touched. Filesystem errors
// are returned wrapped; a failure partway leaves the destination partially
// populated.
func (b *Bundler) Bundle(ref ModuleRef, destination string, opts Options) (*model.BundleResult, error) {
	mod, err := ref.Resolve(b.locator)
	if err != nil {
		return nil, err
	}
	name := mod.LogicalName()
	file := mod.SourceFile()

	dest, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	result := &model.BundleResult{
		ModuleName:  name,
		ModuleFile:  file,
		Destination: dest,
	}

	if opts.CopyEntireProject {
		if opts.ProjectBaseDir == "" {
			return nil, model.WrapCLIError(model.ExitConfigError, "cannot copy the entire project", model.ErrProjectBaseRequired)
		}
		base, err := filepath.Abs(opts.ProjectBaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project base dir: %w", err)
		}
		b.logger.Debug("copying entire project", "from", base, "to", dest)
		if err := copyTree(base, dest); err != nil {
			return nil, err
		}
		result.ProjectBase = base
		result.EntireProject = true
		return result, nil
	}

	found, err := b.finder.FindImports(mod.Name, file)
	if err != nil {
		var synErr *pyimport.SyntaxError
		if !errors.As(err, &synErr) {
			return nil, fmt.Errorf("failed to discover imports of %s: %w", name, err)
		}
		b.logger.Warn("import discovery stopped early", "module", name, "err", synErr)
		result.PartialScan = true
	}

	files := make(map[string]string, len(found))
	for n, f := range found {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(model.SourceFileFor(f))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path of module %s: %w", n, err)
		}
		files[n] = abs
	}

	base, err := b.projectBase(opts.ProjectBaseDir, file)
	if err != nil {
		return nil, err
	}
	result.ProjectBase = base

	files = filterUnder(base, files)
	// The entry point is bundled under its logical name, never as __main__.
	delete(files, model.EntryPointName)
	files[name] = file

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		target := targetPath(dest, n, files[n])
		if err := copyFile(files[n], target, 0644); err != nil {
			return nil, err
		}
		b.logger.Debug("copied module", "name", n, "target", target)
		result.Files = append(result.Files, model.CopiedFile{Module: n, Source: files[n], Target: target})
	}

	inits, err := ensureInitFiles(dest)
	if err != nil {
		return nil, err
	}
	result.InitFiles = inits

	b.logger.Debug("bundle complete", "module", name, "files", len(result.Files), "inits", len(inits))
	return result, nil
}

// projectBase picks the directory used to filter discovered modules.
func (b *Bundler) projectBase(explicit, moduleFile string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve project base dir: %w", err)
		}
		return abs, nil
	}

	root, err := b.roots.GetRepoRoot(filepath.Dir(moduleFile))
	if err == nil && root != "" {
		return filepath.Clean(root), nil
	}
	fallback := filepath.Dir(filepath.Dir(moduleFile))
	b.logger.Debug("no repository root, using fallback project base", "base", fallback, "err", err)
	return fallback, nil
}

// filterUnder keeps the modules whose file lies inside base. Paths are
// compared segment by segment, so "/proj" does not contain "/proj2/x.py".
// Symbolic links are resolved on both sides when possible.
func filterUnder(base string, files map[string]string) map[string]string {
	canonBase := canonical(base)
	kept := make(map[string]string, len(files))
	for n, f := range files {
		if within(base, f) || within(canonBase, canonical(f)) {
			kept[n] = f
		}
	}
	return kept
}

func within(base, path string) bool {
	if path == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// targetPath maps a dotted module name to its file in the destination:
// "pkg.sub" becomes pkg/sub.py, or pkg/sub/__init__.py for a package.
func targetPath(dest, name, file string) string {
	parts := strings.Split(name, ".")
	if filepath.Base(file) == model.PackageInitFile {
		return filepath.Join(append(append([]string{dest}, parts...), model.PackageInitFile)...)
	}
	last := len(parts) - 1
	dirs := append([]string{dest}, parts[:last]...)
	return filepath.Join(append(dirs, parts[last]+model.SourceExt)...)
}

// errCopy wraps a filesystem failure in the destination tree.
func errCopy(op, path string, err error) error {
	return model.WrapCLIError(model.ExitCopyFailed, fmt.Sprintf("failed to %s %s", op, path), err)
}

// statDir reports whether path is an existing directory.
func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
