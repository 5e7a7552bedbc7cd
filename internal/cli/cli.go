// Package cli implements the pyseek command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pyseek/internal/config"
	"github.com/matzehuels/pyseek/pkg/buildinfo"
	"github.com/matzehuels/pyseek/pkg/cache"
	"github.com/matzehuels/pyseek/pkg/observability"
	"github.com/matzehuels/pyseek/pkg/python"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used in messages.
	appName = "pyseek"

	// probeCacheDir is the probe cache below the cache directory.
	probeCacheDir = "interpreter-v1"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command results; Err receives warnings, hints and status
	// lines.
	Out io.Writer
	Err io.Writer

	verbose   bool
	noConfig  bool
	directory string

	settings *config.Settings
	workDir  string
	rep      *reporter
}

// New creates a new CLI instance with a default logger writing to errw.
func New(out, errw io.Writer, level log.Level) *CLI {
	c := &CLI{
		Logger: newLogger(errw, level),
		Out:    out,
		Err:    errw,
	}
	c.rep = newReporter(c)
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "pyseek finds Python interpreters and builds virtual environments",
		Long:          `pyseek discovers Python interpreters (virtual environments, managed installations and the search path), honours version pins and project requirements, and materializes virtual environments.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)
	root.SetErr(c.Err)

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&c.noConfig, "no-config", false, "ignore pyseek.toml and .python-version files")
	flags.StringVar(&c.directory, "directory", "", "run as if started in this directory")

	// Register all subcommands
	root.AddCommand(c.findCommand())
	root.AddCommand(c.venvCommand())
	root.AddCommand(c.pinCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs the command line args and returns the process exit code.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	root := c.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && ctx.Err() != nil {
		return ExitInterrupted
	}
	if err != nil {
		c.printError(err)
	}
	return ExitCode(err)
}

// setup loads settings and resolves the working directory before any
// command runs. The logger is attached to the command's context.
func (c *CLI) setup(cmd *cobra.Command) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
		registerDebugHooks()
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	settings, err := config.Load(config.Options{NoConfig: c.noConfig})
	if err != nil {
		return err
	}
	c.settings = settings
	if settings.ConfigFile != "" {
		c.Logger.Debug("loaded config", "file", settings.ConfigFile)
	}

	wd := c.directory
	if wd == "" {
		if wd, err = os.Getwd(); err != nil {
			return err
		}
	}
	if c.workDir, err = filepath.Abs(wd); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Discovery Factory
// =============================================================================

// newProber creates a prober backed by the persistent probe cache. The cache
// is Redis when a redis:// URL is configured, a directory below the cache
// dir otherwise, and disabled when neither can be opened.
func (c *CLI) newProber(ctx context.Context) (*python.Prober, func()) {
	store := c.newCache(ctx)
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), python.ProbeCacheScope)
	q := python.ExecQuerier{Timeout: c.settings.ProbeTimeout}
	return python.NewProber(q, python.WithCache(store, keyer)), func() { _ = store.Close() }
}

func (c *CLI) newCache(ctx context.Context) cache.Cache {
	if url := c.settings.CacheURL; strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: url})
		if err == nil {
			return rc
		}
		c.Logger.Debug("redis cache unavailable, using file cache", "err", err)
	}
	fc, err := cache.NewFileCache(filepath.Join(c.settings.CacheDir, probeCacheDir))
	if err != nil {
		nc := cache.NewNullCache(err.Error())
		c.Logger.Debug(nc.String())
		return nc
	}
	return fc
}

// newFinder creates a Finder over the configured sources.
func (c *CLI) newFinder(ctx context.Context) (*python.Finder, func()) {
	prober, closeCache := c.newProber(ctx)
	cfg := python.Config{
		WorkingDir:      c.workDir,
		VirtualEnv:      c.settings.VirtualEnv,
		CondaPrefix:     c.settings.CondaPrefix,
		SearchPath:      c.settings.SearchPath,
		EnvironmentName: c.settings.ProjectEnvironment,
		ManagedDir:      c.settings.PythonInstallDir,
		CacheDir:        c.settings.CacheDir,
		ParallelProbes:  c.settings.ParallelProbes,
	}
	if path := c.settings.DownloadsJSON; path != "" {
		downloads, err := python.LoadDownloads(path)
		if err != nil {
			c.Logger.Debug("ignoring download metadata", "path", path, "err", err)
		}
		cfg.Downloads = downloads
	}
	return python.NewFinder(cfg, prober, c.rep), closeCache
}

// registerDebugHooks logs discovery events at debug level through the
// logger carried in each event's context.
func registerDebugHooks() {
	h := debugHooks{}
	observability.SetProbeHooks(h)
	observability.SetCacheHooks(h)
	observability.SetSelectionHooks(h)
}
