package repo

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/pybundle/internal/model"
)

// DefaultGitBinary is the executable looked up on PATH.
const DefaultGitBinary = "git"

// Manager provides Git queries by invoking the git CLI.
//
// It holds only the name of the git executable, so tests (and callers
// with an unusual installation) can point it elsewhere.
type Manager struct {
	gitBinary string
}

// NewManager creates a Manager that runs the git found on PATH.
func NewManager() *Manager {
	return &Manager{gitBinary: DefaultGitBinary}
}

// NewManagerWithBinary creates a Manager that runs the given git
// executable. An empty name falls back to DefaultGitBinary.
func NewManagerWithBinary(gitBinary string) *Manager {
	if gitBinary == "" {
		gitBinary = DefaultGitBinary
	}
	return &Manager{gitBinary: gitBinary}
}

// GetRepoRoot returns the absolute path to the top-level directory of the
// Git repository containing the given path.
//
// This uses `git rev-parse --show-toplevel`, which works for both the main
// checkout and linked worktrees. A missing git binary, a path outside any
// repository, and empty output all return a CLIError with ExitGitError.
func (m *Manager) GetRepoRoot(path string) (string, error) {
	output, err := m.runGit(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	root := strings.TrimSpace(output)
	if root == "" {
		return "", model.NewCLIError(model.ExitGitError, fmt.Sprintf("git reported no top-level directory for %s", path))
	}
	// git prints forward slashes on every platform.
	return filepath.FromSlash(root), nil
}

// runGit executes a git command with the given arguments in the specified directory.
//
// It captures both stdout and stderr. On success (exit code 0), it returns
// the stdout output. On failure, it returns a model.CLIError with ExitGitError
// code, including the stderr output in the error message for debugging.
//
// The dir parameter is passed to git via the -C flag, which causes git
// to change to that directory before doing anything else, so the process's
// own working directory never matters.
func (m *Manager) runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are constructed internally, not from user input
	cmd := exec.Command(m.gitBinary, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}
