// Package bundler copies a Python module and the same-project modules it
// imports into a self-contained destination tree.
//
// A bundle is produced in one of two ways:
//
//   - Selective copy (default): the module's imports are discovered
//     statically, filtered to files under the project base directory, and
//     each surviving module is written at the path its dotted name implies.
//     Every directory of the destination then receives an empty
//     __init__.py if it has none, so the tree imports as packages.
//   - Whole-project copy: the project base directory is copied verbatim
//     and no discovery runs.
//
// The project base defaults to the Git top-level directory of the module,
// falling back to the parent of the module's directory when Git is
// unavailable or the module is not in a repository.
package bundler
