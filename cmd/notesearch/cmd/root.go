// Package cmd provides the CLI commands for notesearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/notesearch/internal/config"
	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/logging"
	"github.com/Aman-CERP/notesearch/internal/profiling"
	"github.com/Aman-CERP/notesearch/pkg/version"
)

// skipSetup marks commands that run without configuration or logging.
const skipSetup = "notesearch/skip-setup"

// mcpMode marks commands whose stdout carries JSON-RPC.
const mcpMode = "notesearch/mcp-mode"

// rootOptions holds persistent flags and the state they produce.
type rootOptions struct {
	configPath string
	notesRoot  string
	indexDir   string
	backend    string
	debug      bool

	profile profiling.Options

	cfg            *config.Config
	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the notesearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notesearch",
		Short: "Full-text search for a folder of Markdown notes",
		Long: `notesearch keeps a persistent full-text index of a notes folder,
keeps it in sync as files change and answers ranked queries with snippets.

Queries support +required, -excluded, "quoted phrases" and
filename:, section: and content: field prefixes.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("notesearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/notesearch/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.notesRoot, "notes", "", "Notes directory to index")
	cmd.PersistentFlags().StringVar(&opts.indexDir, "index-dir", "", "Directory holding the search index")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Index backend: bleve or sqlite")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.notesearch/logs/")

	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		return opts.setup(c)
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return opts.teardown()
	}

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup starts profiling, loads configuration and installs the default
// logger.
func (o *rootOptions) setup(c *cobra.Command) (err error) {
	prof, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = prof
	defer func() {
		if err != nil {
			_ = o.teardown()
		}
	}()

	if c.Annotations[skipSetup] != "" {
		return nil
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg

	if c.Annotations[mcpMode] != "" {
		cleanup, err := logging.SetupMCPMode(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		o.loggingCleanup = cleanup
		return nil
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	// Only watch reports activity on stderr; the others print results.
	logCfg.WriteToStderr = c.Name() == "watch"
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("cli_started",
		slog.String("command", c.Name()),
		slog.String("notes_root", cfg.NotesRoot),
		slog.String("index_dir", cfg.IndexDir),
		slog.String("backend", cfg.Backend))
	return nil
}

func (o *rootOptions) teardown() error {
	var err error
	if o.profiler != nil {
		err = o.profiler.Stop()
		o.profiler = nil
	}
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
	return err
}

// loadConfig resolves configuration files and environment, then applies
// command-line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nserrors.ConfigError(err.Error(), err).
			WithSuggestion("Check the config file or pass --config with a valid path")
	}

	if o.notesRoot != "" {
		cfg.NotesRoot = o.notesRoot
	}
	if o.indexDir != "" {
		cfg.IndexDir = o.indexDir
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Normalize(); err != nil {
		return nil, nserrors.ConfigError(err.Error(), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nserrors.ConfigError(fmt.Sprintf("invalid configuration: %v", err), err)
	}
	return cfg, nil
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
