// Package pyimport discovers the import graph of Python sources without
// executing them.
//
// Discovery has three layers:
//   - ScanImports tokenizes one source file and reports its import
//     statements, wherever they appear (module level, function bodies,
//     conditional blocks, one-line compound statements).
//   - Locator maps dotted module names to files on a search path, using the
//     same package rules as the interpreter: a directory with __init__.py is
//     a regular package, a directory without one is a namespace package, and
//     name.py is a plain module.
//   - Finder walks the graph depth-first from an entry file and records every
//     module it reaches, together with the names it could not resolve.
//
// The scanner is deliberately a tokenizer, not a parser. It understands
// enough of the grammar to skip strings and comments, follow bracket nesting
// and line continuations, and recognize statement boundaries. Source written
// for a different language dialect is reported as a *SyntaxError, and the
// imports found before that point are still returned.
package pyimport
