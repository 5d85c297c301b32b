package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YauheniMa/witcher-bot/internal/preflight"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

func newDoctorCmd(global *globalOptions) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the corpus, index directory and embedder are usable",
		Long: `Run the checks the engine depends on without building the indexes:

  - the corpus loads and validates
  - the on-disk index directory is writable, has space and is not locked
  - the open file limit
  - the configured embedding provider answers

Exits non-zero when a required check fails.`,
		Example: `  witcher doctor
  witcher doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, global, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, global *globalOptions, verbose, jsonOutput bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	defer setupCLILogging(cfg)()

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx, preflight.Target{
		CorpusPath: cfg.Corpus.Path,
		AllowEmpty: cfg.Corpus.AllowEmpty,
		IndexPath:  indexConfig(cfg, ui.Discard{}).LexicalPath,
		Embedder:   embedOptions(cfg),
	})

	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), checker.NewReport(results)); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return &doctorError{failed: len(checker.NewReport(results).Errors)}
	}
	return nil
}

type doctorError struct {
	failed int
}

func (e *doctorError) Error() string {
	return fmt.Sprintf("system check failed: %d required check(s) did not pass", e.failed)
}
