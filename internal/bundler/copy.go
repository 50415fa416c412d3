package bundler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// copyFile writes the bytes of src to target, creating parent directories.
func copyFile(src, target string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errCopy("read", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errCopy("create directory", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, data, perm); err != nil {
		return errCopy("write", target, err)
	}
	return nil
}

// copyTree recursively copies the directory src into dst. dst may already
// exist; files in it are overwritten. Symbolic links are followed. When dst
// lies inside src it is not copied into itself. A link back to a directory
// that is being copied fails instead of looping.
func copyTree(src, dst string) error {
	isDir, err := statDir(src)
	if err != nil {
		return errCopy("read project directory", src, err)
	}
	if !isDir {
		return errCopy("read project directory", src, fmt.Errorf("not a directory"))
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return errCopy("create directory", dst, err)
	}
	realDst, err := filepath.EvalSymlinks(dst)
	if err != nil {
		return errCopy("resolve", dst, err)
	}

	c := &treeCopier{dst: realDst, active: make(map[string]bool)}
	return c.copyDir(src, dst)
}

// treeCopier holds the state of one copyTree call.
type treeCopier struct {
	// dst is the symlink-free destination root, skipped during the walk.
	dst string

	// active holds the real paths of the directories being walked.
	active map[string]bool
}

// copyDir copies the contents of dir, which may be a link, into target.
func (c *treeCopier) copyDir(dir, target string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return errCopy("follow link", dir, err)
	}
	if c.active[resolved] {
		return errCopy("follow link", dir, fmt.Errorf("link cycle through %s", resolved))
	}
	c.active[resolved] = true
	defer delete(c.active, resolved)

	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errCopy("walk", path, err)
		}
		if path == c.dst {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		out := filepath.Join(target, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(out, 0755); err != nil {
				return errCopy("create directory", out, err)
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(path)
			if err != nil {
				return errCopy("follow link", path, err)
			}
			if info.IsDir() {
				return c.copyDir(path, out)
			}
			return copyFile(path, out, info.Mode().Perm())
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return errCopy("stat", path, err)
			}
			return copyFile(path, out, info.Mode().Perm())
		default:
			// Sockets, devices and pipes are not part of a source tree.
			return nil
		}
	})
}

// ensureInitFiles creates an empty __init__.py in every directory under
// root, root included, that lacks one. It returns the created files in
// walk order.
func ensureInitFiles(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errCopy("walk", path, err)
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var created []string
	for _, dir := range dirs {
		initFile := filepath.Join(dir, model.PackageInitFile)
		if _, err := os.Lstat(initFile); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return created, errCopy("stat", initFile, err)
		}
		if err := os.WriteFile(initFile, nil, 0644); err != nil {
			return created, errCopy("write", initFile, err)
		}
		created = append(created, initFile)
	}
	return created, nil
}
