// Package cmd provides the CLI commands for witcher.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/YauheniMa/witcher-bot/internal/config"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/logging"
	"github.com/YauheniMa/witcher-bot/internal/profiling"
	"github.com/YauheniMa/witcher-bot/pkg/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configDir string
	debug     bool
	profile   profiling.Config

	session *profiling.Session
}

// NewRootCmd creates the root command for the witcher CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "witcher",
		Short: "Scene search over an annotated saga corpus",
		Long: `witcher answers free-text questions about a story with the scenes
that best match them.

Scenes are retrieved by BM25 and by embedding similarity, then reranked by
how many of the question's characters, locations and events they contain.

Run 'witcher serve' to expose smart_search to AI assistants over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("witcher version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "Directory holding .witcher.yaml; relative corpus paths resolve against it")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if !opts.profile.Enabled() {
			return nil
		}
		session, err := profiling.Start(opts.profile)
		if err != nil {
			return err
		}
		opts.session = session
		return nil
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		err := opts.session.Stop()
		opts.session = nil
		return err
	}

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, printing failures to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FormatForCLI(err))
	}
	return err
}

// loadConfig loads the layered configuration for the --config-dir.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// loggingConfig maps the logging section onto the logging package.
func loggingConfig(cfg *config.Config) logging.Config {
	lc := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: cfg.Logging.Stderr,
	}
	if lc.FilePath == "" {
		lc.FilePath = logging.DefaultLogPath()
	}
	return lc
}

// setupCLILogging installs the file logger for interactive commands.
// Logging failures never block a command.
func setupCLILogging(cfg *config.Config) func() {
	cleanup, err := logging.SetupDefault(loggingConfig(cfg))
	if err != nil {
		slog.Warn("logging_setup_failed", slog.String("error", err.Error()))
		return func() {}
	}
	return cleanup
}
