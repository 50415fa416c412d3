package cli

import (
	"os"
	"strings"

	"github.com/shinji-kodama/pybundle/internal/bundler"
	"github.com/shinji-kodama/pybundle/internal/config"
	"github.com/shinji-kodama/pybundle/internal/model"
	"github.com/shinji-kodama/pybundle/internal/pyimport"
)

// parseModuleRef interprets a module argument. A path to an existing file,
// or anything ending in .py or .pyc, is a script run as the entry point;
// everything else is a dotted module name.
func parseModuleRef(arg string) bundler.ModuleRef {
	if strings.HasSuffix(arg, model.SourceExt) || strings.HasSuffix(arg, model.CompiledExt) {
		return bundler.EntryPoint(arg)
	}
	if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
		return bundler.EntryPoint(arg)
	}
	return bundler.ByName(arg)
}

// loadConfig reads the config file named by --config, or the one found in
// the working directory. No file yields an empty Config.
//
// Validation problems are reported as warnings; the bundler still decides
// which of them are fatal.
func loadConfig(explicit string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if explicit != "" {
		cfg, err = config.Load(explicit)
	} else {
		var cwd string
		cwd, err = os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		cfg, err = config.Discover(cwd)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Path != "" {
		VerboseLog("Using config file: %s", cfg.Path)
	}
	for _, verr := range config.Validate(cfg) {
		logger.Warn(verr.Message, "field", verr.Field, "file", cfg.Path)
	}
	return cfg, nil
}

// newFinder builds the discovery finder. Module names are searched in the
// --path directories, then the config's search paths, then the working
// directory, then the PYTHONPATH of the env file, then $PYTHONPATH.
//
// envFile is the --env-file flag; when empty the config's envFile is used.
func newFinder(paths []string, envFile string, cfg *config.Config) (*pyimport.Finder, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}
	dirs := make([]string, 0, len(paths)+len(cfg.SearchPaths)+1)
	dirs = append(dirs, paths...)
	dirs = append(dirs, cfg.SearchPaths...)
	dirs = append(dirs, cwd)

	if envFile == "" {
		envFile = cfg.EnvFile
	}
	if envFile != "" {
		entries, err := config.EnvPythonPath(envFile)
		if err != nil {
			return nil, err
		}
		VerboseLog("PYTHONPATH from %s: %v", envFile, entries)
		dirs = append(dirs, entries...)
	}

	locator := pyimport.NewLocator(pyimport.SearchPath(dirs...)...)
	VerboseLog("Search path: %s", strings.Join(locator.Paths(), string(os.PathListSeparator)))
	return pyimport.NewFinder(locator, logger), nil
}
