// Package repo answers version-control questions for the bundler.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Treats a missing git binary exactly like "not inside a repository"
//
// The only question asked today is the top-level directory of the
// repository enclosing a path, which the bundler uses as the default
// project boundary.
package repo
