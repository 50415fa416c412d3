package pyimport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// Graph is the result of a discovery pass.
type Graph struct {
	// Modules maps module names to absolute source files for every module
	// reached that has a source file. The entry module is recorded under
	// the name it was run as.
	Modules map[string]string

	// Order lists the names in Modules in discovery order.
	Order []string

	// Missing maps names that could not be resolved to the modules that
	// tried to import them. The standard library and third-party packages
	// not on the search path end up here.
	Missing map[string][]string
}

func newGraph() *Graph {
	return &Graph{
		Modules: make(map[string]string),
		Missing: make(map[string][]string),
	}
}

// MissingNames returns the unresolved module names, sorted.
func (g *Graph) MissingNames() []string {
	names := make([]string, 0, len(g.Missing))
	for name := range g.Missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) record(name, file string) {
	if _, ok := g.Modules[name]; !ok {
		g.Order = append(g.Order, name)
	}
	g.Modules[name] = file
}

// DefaultScanCacheSize is the number of scanned files a Finder remembers.
const DefaultScanCacheSize = 4096

// Finder discovers the modules a Python file transitively imports.
//
// A Finder holds no per-run state and can be reused. Scan results are
// cached by file path, size and modification time, so repeated runs over
// the same tree only rescan files that changed.
type Finder struct {
	locator *Locator
	logger  *log.Logger
	cache   *lru.Cache[scanKey, []Import]
}

// scanKey identifies one version of a source file.
type scanKey struct {
	path    string
	size    int64
	modTime int64
}

// NewFinder creates a Finder that resolves imports with locator. A nil
// locator searches $PYTHONPATH only; a nil logger discards output.
func NewFinder(locator *Locator, logger *log.Logger) *Finder {
	if locator == nil {
		locator = NewLocator(SearchPath()...)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[scanKey, []Import](DefaultScanCacheSize)
	return &Finder{locator: locator, logger: logger, cache: cache}
}

// Locate resolves a dotted module name to its source file on the
// finder's search path.
func (f *Finder) Locate(name string) (string, error) {
	return f.locator.Locate(name)
}

// FindImports runs discovery from file, loaded as module name, and returns
// the module file map. On a *SyntaxError the partial map is returned along
// with the error.
func (f *Finder) FindImports(name, file string) (map[string]string, error) {
	g, err := f.Run(name, file)
	return g.Modules, err
}

// Run walks the import graph depth-first from file, treating it as the
// module called name.
//
// When name is model.EntryPointName the file's directory is searched
// before the finder's search path, and relative imports in the file are
// unresolvable, as they are for a script the interpreter starts. For any
// other name relative imports resolve against the name's package.
//
// A syntax error in any reached file stops the walk. The returned Graph
// then holds everything discovered before the failing file, which itself
// is not recorded. The Graph is never nil.
func (f *Finder) Run(name, file string) (*Graph, error) {
	g := newGraph()
	abs, err := filepath.Abs(file)
	if err != nil {
		return g, fmt.Errorf("resolve entry file %s: %w", file, err)
	}

	locator := f.locator
	entry := &node{name: name, file: abs}
	if name == model.EntryPointName {
		locator = locator.With(filepath.Dir(abs))
	} else if filepath.Base(abs) == model.PackageInitFile {
		entry.dir = filepath.Dir(abs)
	}

	w := &walk{
		locator: locator,
		logger:  f.logger,
		cache:   f.cache,
		graph:   g,
		nodes:   make(map[string]*node),
		missing: make(map[string]bool),
	}
	err = w.load(entry)
	if err == nil {
		f.logger.Debug("import discovery finished", "entry", name, "modules", len(g.Modules), "missing", len(g.Missing))
	}
	return g, err
}

// node is a module known to a walk.
type node struct {
	name string
	// file is empty for namespace packages.
	file string
	// dir is the package directory. Empty for plain modules.
	dir string
}

type walk struct {
	locator *Locator
	logger  *log.Logger
	cache   *lru.Cache[scanKey, []Import]
	graph   *Graph
	nodes   map[string]*node
	missing map[string]bool
}

// load scans a module and follows its imports. The node is registered
// before its imports are followed so cycles terminate.
func (w *walk) load(n *node) error {
	w.nodes[n.name] = n
	if n.file == "" {
		return nil
	}

	imports, err := w.scan(n)
	if err != nil {
		return err
	}

	w.graph.record(n.name, n.file)
	w.logger.Debug("module found", "name", n.name, "file", n.file, "imports", len(imports))

	for _, imp := range imports {
		if err := w.importHook(n, imp); err != nil {
			return err
		}
	}
	return nil
}

// scan returns the imports of n's file, from the cache when the file is
// unchanged. Files that fail to scan are not cached.
func (w *walk) scan(n *node) ([]Import, error) {
	info, err := os.Stat(n.file)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", n.name, err)
	}
	key := scanKey{path: n.file, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if imports, ok := w.cache.Get(key); ok {
		return imports, nil
	}

	src, err := os.ReadFile(n.file)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", n.name, err)
	}
	imports, err := ScanImports(src)
	if err != nil {
		var synErr *SyntaxError
		if errors.As(err, &synErr) {
			synErr.File = n.file
		}
		return nil, err
	}
	w.cache.Add(key, imports)
	return imports, nil
}

func (w *walk) importHook(caller *node, imp Import) error {
	var parent *node
	if imp.Level > 0 {
		p, ok, err := w.determineParent(caller, imp.Level)
		if err != nil {
			return err
		}
		if !ok {
			w.addMissing(strings.Repeat(".", imp.Level)+imp.Module, caller)
			return nil
		}
		parent = p
	}

	target := parent
	if imp.Module != "" {
		n, missing, err := w.importDotted(imp.Module, parent)
		if err != nil {
			return err
		}
		if n == nil {
			w.addMissing(missing, caller)
			return nil
		}
		target = n
	}

	if imp.IsFrom() {
		return w.ensureFromlist(target, imp.Names)
	}
	return nil
}

// determineParent finds the package a relative import of the given level
// is resolved against. ok is false when the import reaches beyond the
// top-level package.
func (w *walk) determineParent(caller *node, level int) (*node, bool, error) {
	var pname, pdir string
	if caller.dir != "" {
		pname, pdir = caller.name, caller.dir
	} else {
		i := strings.LastIndex(caller.name, ".")
		if i < 0 {
			return nil, false, nil
		}
		pname, pdir = caller.name[:i], filepath.Dir(caller.file)
	}
	for l := 1; l < level; l++ {
		i := strings.LastIndex(pname, ".")
		if i < 0 {
			return nil, false, nil
		}
		pname, pdir = pname[:i], filepath.Dir(pdir)
	}

	if n, ok := w.nodes[pname]; ok {
		return n, true, nil
	}
	// The parent of the entry module has not been imported yet.
	n := &node{name: pname, dir: pdir}
	if initFile := filepath.Join(pdir, model.PackageInitFile); isFile(initFile) {
		n.file = initFile
	}
	if err := w.load(n); err != nil {
		return nil, false, err
	}
	return n, true, nil
}

// importDotted imports each component of dotted in turn below parent, so
// "a.b.c" loads a, a.b and a.b.c. When a component cannot be found it
// returns the qualified name of that component.
func (w *walk) importDotted(dotted string, parent *node) (*node, string, error) {
	cur := parent
	for _, part := range strings.Split(dotted, ".") {
		fq := qualify(cur, part)
		n, err := w.importModule(part, fq, cur)
		if err != nil {
			return nil, "", err
		}
		if n == nil {
			return nil, fq, nil
		}
		cur = n
	}
	return cur, "", nil
}

// importModule loads one name component. It returns nil without error
// when the module does not exist.
func (w *walk) importModule(part, fq string, parent *node) (*node, error) {
	if n, ok := w.nodes[fq]; ok {
		return n, nil
	}
	if w.missing[fq] {
		return nil, nil
	}

	dirs := w.locator.paths
	if parent != nil {
		if parent.dir == "" {
			return nil, nil
		}
		dirs = []string{parent.dir}
	}

	s, ok := find(part, dirs)
	if !ok {
		return nil, nil
	}
	n := &node{name: fq, file: s.file, dir: s.dir}
	if err := w.load(n); err != nil {
		return nil, err
	}
	return n, nil
}

// ensureFromlist imports the names of a from-import that are submodules
// of a package. Names that are not submodules are attributes and are
// skipped silently. A star import loads every submodule.
func (w *walk) ensureFromlist(n *node, names []string) error {
	if n.dir == "" {
		return nil
	}
	for _, name := range names {
		if name == "*" {
			for _, sub := range submodules(n.dir) {
				if _, err := w.importModule(sub, n.name+"."+sub, n); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := w.importModule(name, n.name+"."+name, n); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) addMissing(name string, caller *node) {
	w.missing[name] = true
	w.graph.Missing[name] = append(w.graph.Missing[name], caller.name)
	w.logger.Debug("module not found", "name", name, "importer", caller.name)
}

func qualify(parent *node, name string) string {
	if parent == nil {
		return name
	}
	return parent.name + "." + name
}
