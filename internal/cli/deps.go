// deps.go implements the "pybundle deps" command.
//
// The deps command runs import discovery without copying anything, which
// is useful to check what a bundle would contain and which imports fall
// outside the search path.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pybundle/internal/model"
	"github.com/shinji-kodama/pybundle/internal/pyimport"
)

// depsFlags holds the flag values for the deps command.
type depsFlags struct {
	paths      []string // --path: extra module search directories
	configFile string   // --config: explicit config file
	envFile    string   // --env-file: dotenv file providing PYTHONPATH
}

// NewDepsCommand creates the "deps" cobra command.
func NewDepsCommand() *cobra.Command {
	flags := &depsFlags{}

	cmd := &cobra.Command{
		Use:   "deps <module|script.py>",
		Short: "List the modules a module transitively imports",
		Long: `Run static import discovery from a module and print every module found,
with its source file, followed by the imports that could not be resolved on
the search path (typically the standard library and third-party packages).

Examples:
  pybundle deps mypkg.train
  pybundle deps scripts/serve.py --path src
  pybundle deps mypkg.train --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.paths, "path", nil, "Additional module search directory (repeatable)")
	cmd.Flags().StringVar(&flags.configFile, "config", "", "Config file (default: .pybundle.yaml, .pybundle.yml, .pybundle.json or pyproject.toml in the working directory)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Dotenv file whose PYTHONPATH extends the search path")

	return cmd
}

// depsReport is what the deps command prints.
type depsReport struct {
	Module      string
	File        string
	Graph       *pyimport.Graph
	PartialScan bool
	ScanError   string
}

func runDeps(cmd *cobra.Command, moduleArg string, flags *depsFlags) error {
	cfg, err := loadConfig(flags.configFile)
	if err != nil {
		return err
	}
	finder, err := newFinder(flags.paths, flags.envFile, cfg)
	if err != nil {
		return err
	}

	mod, err := parseModuleRef(moduleArg).Resolve(finder)
	if err != nil {
		return err
	}
	file := mod.SourceFile()

	report := depsReport{Module: mod.LogicalName(), File: file}
	report.Graph, err = finder.Run(mod.Name, file)
	if err != nil {
		var synErr *pyimport.SyntaxError
		if !errors.As(err, &synErr) {
			return fmt.Errorf("failed to discover imports of %s: %w", report.Module, err)
		}
		logger.Warn("import discovery stopped early", "module", report.Module, "err", synErr)
		report.PartialScan = true
		report.ScanError = synErr.Error()
	}

	printDepsResult(cmd.OutOrStdout(), report)
	return nil
}

// displayName maps the entry-point pseudo-module to the name the module is
// reported under.
func (r depsReport) displayName(name string) string {
	if name == model.EntryPointName {
		return r.Module
	}
	return name
}

func printDepsResult(w io.Writer, report depsReport) {
	if IsJSONOutput() {
		printDepsResultJSON(w, report)
	} else {
		printDepsResultText(w, report)
	}
}

type depsModuleJSON struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type depsMissingJSON struct {
	Name       string   `json:"name"`
	ImportedBy []string `json:"importedBy"`
}

func printDepsResultJSON(w io.Writer, report depsReport) {
	type resultJSON struct {
		Module      string            `json:"module"`
		File        string            `json:"file"`
		Modules     []depsModuleJSON  `json:"modules"`
		Missing     []depsMissingJSON `json:"missing"`
		PartialScan bool              `json:"partialScan"`
		Error       string            `json:"error,omitempty"`
	}

	g := report.Graph
	result := resultJSON{
		Module:      report.Module,
		File:        report.File,
		Modules:     make([]depsModuleJSON, 0, len(g.Order)),
		Missing:     make([]depsMissingJSON, 0, len(g.Missing)),
		PartialScan: report.PartialScan,
		Error:       report.ScanError,
	}
	for _, name := range g.Order {
		result.Modules = append(result.Modules, depsModuleJSON{Name: report.displayName(name), File: g.Modules[name]})
	}
	for _, name := range g.MissingNames() {
		importers := make([]string, 0, len(g.Missing[name]))
		for _, imp := range g.Missing[name] {
			importers = append(importers, report.displayName(imp))
		}
		result.Missing = append(result.Missing, depsMissingJSON{Name: name, ImportedBy: importers})
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(w, string(data))
}

// printDepsResultText outputs the discovery result as a two-column table
// in discovery order, followed by the unresolved names.
//
//	Module "app.util" (/src/app/util.py)
//
//	MODULE           FILE
//	app.util         /src/app/util.py
//	app              /src/app/__init__.py
//	app.models.base  /src/app/models/base.py
//
//	Not found (2): numpy, os
func printDepsResultText(w io.Writer, report depsReport) {
	g := report.Graph
	fmt.Fprintf(w, "Module %q (%s)\n", report.Module, report.File)
	if report.PartialScan {
		fmt.Fprintf(w, "Warning: discovery stopped early: %s\n", report.ScanError)
	}

	if len(g.Order) > 0 {
		width := len("MODULE")
		for _, name := range g.Order {
			if n := len(report.displayName(name)); n > width {
				width = n
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-*s  %s\n", width, "MODULE", "FILE")
		for _, name := range g.Order {
			fmt.Fprintf(w, "%-*s  %s\n", width, report.displayName(name), g.Modules[name])
		}
	}

	if missing := g.MissingNames(); len(missing) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Not found (%d): %s\n", len(missing), strings.Join(missing, ", "))
	}
}
