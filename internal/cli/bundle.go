// bundle.go implements the "pybundle bundle" command.
//
// The bundle command is the primary user-facing operation. It resolves the
// module argument, merges flags over the project config file, and hands the
// work to the bundler package.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pybundle/internal/bundler"
	"github.com/shinji-kodama/pybundle/internal/model"
)

// bundleFlags holds the flag values for the bundle command.
// These are bound to cobra flags in NewBundleCommand.
type bundleFlags struct {
	projectBase   string   // --project-base: directory used to filter modules
	entireProject bool     // --entire-project: copy the project base verbatim
	paths         []string // --path: extra module search directories
	configFile    string   // --config: explicit config file
	envFile       string   // --env-file: dotenv file providing PYTHONPATH
}

// NewBundleCommand creates the "bundle" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBundleCommand() *cobra.Command {
	flags := &bundleFlags{}

	cmd := &cobra.Command{
		Use:   "bundle <module|script.py> <destination>",
		Short: "Copy a module and its project imports into a directory",
		Long: `Copy a Python module and every same-project module it imports into
<destination>, mirroring dotted names as directories. Every directory of the
result receives an __init__.py so the tree imports as packages.

The module is either a dotted name, resolved on the search path, or the path
of a script, which is bundled under its file name.

Examples:
  pybundle bundle mypkg.train ./artifact/code
  pybundle bundle scripts/serve.py ./artifact/code --project-base .
  pybundle bundle mypkg.train ./artifact/code --entire-project --project-base .
  pybundle bundle mypkg.train ./out --path src --json`,

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, args[0], args[1], flags)
		},
	}

	cmd.Flags().StringVar(&flags.projectBase, "project-base", "", "Only bundle modules under this directory (default: Git root, else the module's grandparent directory)")
	cmd.Flags().BoolVar(&flags.entireProject, "entire-project", false, "Copy the whole --project-base directory instead of discovering imports")
	cmd.Flags().StringArrayVar(&flags.paths, "path", nil, "Additional module search directory (repeatable)")
	cmd.Flags().StringVar(&flags.configFile, "config", "", "Config file (default: .pybundle.yaml, .pybundle.yml, .pybundle.json or pyproject.toml in the working directory)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Dotenv file whose PYTHONPATH extends the search path")

	return cmd
}

// runBundle is the orchestration function for the bundle command.
func runBundle(cmd *cobra.Command, moduleArg, destination string, flags *bundleFlags) error {
	cfg, err := loadConfig(flags.configFile)
	if err != nil {
		return err
	}

	// Flags win over the config file.
	opts := bundler.Options{
		ProjectBaseDir:    cfg.ProjectBaseDir,
		CopyEntireProject: cfg.CopyEntireProject,
	}
	if flags.projectBase != "" {
		opts.ProjectBaseDir = flags.projectBase
	}
	if cmd.Flags().Changed("entire-project") {
		opts.CopyEntireProject = flags.entireProject
	}

	finder, err := newFinder(flags.paths, flags.envFile, cfg)
	if err != nil {
		return err
	}

	ref := parseModuleRef(moduleArg)
	VerboseLog("Bundling %s into %s", moduleArg, destination)

	result, err := bundler.NewWithFinder(finder, logger).Bundle(ref, destination, opts)
	if err != nil {
		return err
	}

	printBundleResult(cmd.OutOrStdout(), result)
	return nil
}

// printBundleResult outputs the bundle result in text or JSON format,
// depending on the global --json flag.
func printBundleResult(w io.Writer, result *model.BundleResult) {
	if IsJSONOutput() {
		printBundleResultJSON(w, result)
	} else {
		printBundleResultText(w, result)
	}
}

// printBundleResultJSON outputs the result as structured JSON. Slices are
// always present so consumers see [] rather than a missing key.
func printBundleResultJSON(w io.Writer, result *model.BundleResult) {
	type resultJSON struct {
		*model.BundleResult
		Files     []model.CopiedFile `json:"files"`
		InitFiles []string           `json:"initFiles"`
	}

	out := resultJSON{
		BundleResult: result,
		Files:        result.Files,
		InitFiles:    result.InitFiles,
	}
	if out.Files == nil {
		out.Files = []model.CopiedFile{}
	}
	if out.InitFiles == nil {
		out.InitFiles = []string{}
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(w, string(data))
}

// printBundleResultText outputs the result as human-readable text.
//
// The format is:
//
//	Bundled module "train" into /out
//	  Source:        /repo/scripts/train.py
//	  Project base:  /repo
//
//	  Files:
//	    helpers  helpers.py
//	    train    train.py
//
//	  Created 1 package initializer(s)
func printBundleResultText(w io.Writer, result *model.BundleResult) {
	fmt.Fprintf(w, "Bundled module %q into %s\n", result.ModuleName, result.Destination)
	fmt.Fprintf(w, "  Source:        %s\n", result.ModuleFile)
	fmt.Fprintf(w, "  Project base:  %s\n", result.ProjectBase)

	if result.EntireProject {
		fmt.Fprintln(w, "  Mode:          entire project copied")
		return
	}
	if result.PartialScan {
		fmt.Fprintln(w, "  Warning:       import discovery stopped at a syntax error; the bundle may be incomplete")
	}

	if len(result.Files) > 0 {
		width := 0
		for _, f := range result.Files {
			if len(f.Module) > width {
				width = len(f.Module)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Files:")
		for _, f := range result.Files {
			fmt.Fprintf(w, "    %-*s  %s\n", width, f.Module, relativeTo(result.Destination, f.Target))
		}
	}

	if n := len(result.InitFiles); n > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Created %d package initializer(s)\n", n)
	}
}

// relativeTo renders path relative to base with forward slashes, or path
// unchanged when it is not under base.
func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
