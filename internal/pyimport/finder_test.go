package pyimport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root. Keys are slash-separated relative
// paths, values are file contents.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// appProject is a small project that exercises packages, relative
// imports, star imports and unresolvable third-party modules.
var appProject = map[string]string{
	"main.py":                 "import app.util\nfrom app.plugins import *\nimport requests\n",
	"app/__init__.py":         "from . import util\n",
	"app/util.py":             "import os\nfrom .models import Model\n",
	"app/models/__init__.py":  "from .base import *\n",
	"app/models/base.py":      "import numpy as np\n",
	"app/plugins/__init__.py": "",
	"app/plugins/a.py":        "",
	"app/plugins/b.py":        "",
	"app/unused.py":           "",
}

func TestFinder_RunEntryPoint(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	root := t.TempDir()
	writeTree(t, root, appProject)

	f := NewFinder(NewLocator(), nil)
	g, err := f.Run("__main__", filepath.Join(root, "main.py"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"__main__",
		"app",
		"app.util",
		"app.models",
		"app.models.base",
		"app.plugins",
		"app.plugins.a",
		"app.plugins.b",
	}, g.Order)

	assert.Equal(t, filepath.Join(root, "main.py"), g.Modules["__main__"])
	assert.Equal(t, filepath.Join(root, "app", "__init__.py"), g.Modules["app"])
	assert.Equal(t, filepath.Join(root, "app", "models", "base.py"), g.Modules["app.models.base"])
	assert.NotContains(t, g.Modules, "app.unused", "modules nobody imports must not be discovered")

	assert.Equal(t, []string{"numpy", "os", "requests"}, g.MissingNames())
	assert.Equal(t, []string{"app.util"}, g.Missing["os"])
	assert.Equal(t, []string{"__main__"}, g.Missing["requests"])
}

// TestFinder_RunNamedModule verifies that a module run under its dotted
// name resolves relative imports against its package, loading the parent
// package on the way.
func TestFinder_RunNamedModule(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	root := t.TempDir()
	writeTree(t, root, appProject)

	f := NewFinder(NewLocator(root), nil)
	files, err := f.FindImports("app.util", filepath.Join(root, "app", "util.py"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"app.util":        filepath.Join(root, "app", "util.py"),
		"app":             filepath.Join(root, "app", "__init__.py"),
		"app.models":      filepath.Join(root, "app", "models", "__init__.py"),
		"app.models.base": filepath.Join(root, "app", "models", "base.py"),
	}, files)
}

// TestFinder_RelativeImportFromEntryPoint verifies that a script started
// directly cannot use relative imports; the name is only recorded as missing.
func TestFinder_RelativeImportFromEntryPoint(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"run.py":     "from . import sibling\nfrom ..up import x\n",
		"sibling.py": "",
	})

	g, err := NewFinder(NewLocator(), nil).Run("__main__", filepath.Join(root, "run.py"))
	require.NoError(t, err)
	assert.Equal(t, []string{"__main__"}, g.Order)
	assert.Equal(t, []string{".", "..up"}, g.MissingNames())
}

// TestFinder_SyntaxErrorKeepsEarlierModules verifies that a syntax error
// in a dependency stops the walk but keeps what was found before it.
func TestFinder_SyntaxErrorKeepsEarlierModules(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":  "import good\nimport bad\nimport later\n",
		"good.py":  "",
		"bad.py":   "print 'legacy'\n",
		"later.py": "",
	})

	g, err := NewFinder(NewLocator(), nil).Run("__main__", filepath.Join(root, "main.py"))
	require.Error(t, err)

	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, filepath.Join(root, "bad.py"), synErr.File)
	assert.Equal(t, 1, synErr.Line)

	assert.Equal(t, []string{"__main__", "good"}, g.Order)
	assert.NotContains(t, g.Modules, "bad")
	assert.NotContains(t, g.Modules, "later")
}

// TestFinder_SyntaxErrorInEntry verifies that an entry file that does not
// scan yields an empty graph.
func TestFinder_SyntaxErrorInEntry(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"main.py": "import x\ns = 'broken\n"})

	g, err := NewFinder(NewLocator(root), nil).Run("__main__", filepath.Join(root, "main.py"))
	var synErr *SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Empty(t, g.Modules)
}

func TestFinder_Cycle(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py": "import a\n",
		"a.py":    "import b\n",
		"b.py":    "import a\n",
	})

	g, err := NewFinder(NewLocator(root), nil).Run("__main__", filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, []string{"__main__", "a", "b"}, g.Order)
}

// TestFinder_NamespacePackage verifies that a directory without
// __init__.py can hold modules but is not itself recorded.
func TestFinder_NamespacePackage(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":   "import ns.mod\n",
		"ns/mod.py": "",
	})

	g, err := NewFinder(NewLocator(root), nil).Run("__main__", filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, []string{"__main__", "ns.mod"}, g.Order)
	assert.NotContains(t, g.Modules, "ns")
}

func TestFinder_MissingEntryFile(t *testing.T) {
	root := t.TempDir()
	_, err := NewFinder(NewLocator(root), nil).Run("__main__", filepath.Join(root, "nope.py"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocator_Locate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py":       "",
		"pkg/sub.py":            "",
		"pkg/inner/__init__.py": "",
		"both/__init__.py":      "",
		"both.py":               "",
		"ns/leaf.py":            "",
		"plain.py":              "",
	})
	l := NewLocator(root)

	tests := []struct {
		name string
		want string
	}{
		{"plain", filepath.Join(root, "plain.py")},
		{"pkg", filepath.Join(root, "pkg", "__init__.py")},
		{"pkg.sub", filepath.Join(root, "pkg", "sub.py")},
		{"pkg.inner", filepath.Join(root, "pkg", "inner", "__init__.py")},
		{"both", filepath.Join(root, "both", "__init__.py")},
		{"ns.leaf", filepath.Join(root, "ns", "leaf.py")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Locate(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, name := range []string{"missing", "pkg.missing", "plain.sub", "ns"} {
		t.Run("not found "+name, func(t *testing.T) {
			_, err := l.Locate(name)
			var notFound *ModuleNotFoundError
			require.True(t, errors.As(err, &notFound), "want *ModuleNotFoundError, got %v", err)
			assert.Equal(t, name, notFound.Name)
		})
	}

	_, err := l.Locate("not-a-name")
	assert.Error(t, err)
}

func TestSearchPath(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	t.Setenv("PYTHONPATH", a+string(os.PathListSeparator)+b)

	paths := SearchPath(b, "")
	assert.Equal(t, []string{b, a}, paths, "explicit dirs come first and duplicates are dropped")
}

func TestLocator_With(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	l := NewLocator(a).With(b)
	assert.Equal(t, []string{b, a}, l.Paths())
}

// TestFinder_ScanCache verifies that a reused Finder serves unchanged files
// from its cache and rescans files that changed.
func TestFinder_ScanCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py": "import a\n",
		"a.py":    "",
		"b.py":    "",
	})
	f := NewFinder(NewLocator(root), nil)
	main := filepath.Join(root, "main.py")

	g, err := f.Run("__main__", main)
	require.NoError(t, err)
	assert.Equal(t, []string{"__main__", "a"}, g.Order)
	assert.Equal(t, 2, f.cache.Len())

	_, err = f.Run("__main__", main)
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.Len(), "unchanged files must not be added again")

	// A different size is enough to invalidate the entry.
	writeTree(t, root, map[string]string{"main.py": "import a\nimport b\n"})
	g, err = f.Run("__main__", main)
	require.NoError(t, err)
	assert.Equal(t, []string{"__main__", "a", "b"}, g.Order)
}
