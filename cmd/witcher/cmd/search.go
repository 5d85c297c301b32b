package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/mcp"
	"github.com/YauheniMa/witcher-bot/internal/output"
	"github.com/YauheniMa/witcher-bot/internal/search"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topKLexical  int
	topKSemantic int
	mustHave     []string
	limit        int
	format       string // "text", "json"
	explain      bool
	quiet        bool
}

func newSearchCmd(global *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the scenes that answer a question",
		Long: `Run smart_search over the corpus.

The corpus is loaded and indexed, then BM25 and semantic candidates are
merged and ranked by character, location and event overlap with the query.

Examples:
  witcher search "Геральт сражается со стрыгой в Вызиме"
  witcher search "свадьба в Цинтре" --limit 3
  witcher search "дорога на Ривию" --must-have Лютик --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown format %q (valid: text, json)", opts.format)
			}
			query := strings.Join(args, " ")
			err := runSearch(cmd.Context(), cmd, global, query, opts)
			if err != nil && opts.format == "json" {
				writeJSONError(cmd.OutOrStdout(), err)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&opts.topKLexical, "topk-bm25", 0, "Lexical candidates to retrieve (default from config)")
	cmd.Flags().IntVar(&opts.topKSemantic, "topk-semantic", 0, "Semantic candidates to retrieve (default from config)")
	cmd.Flags().StringSliceVar(&opts.mustHave, "must-have", nil, "Keep only scenes featuring one of these characters (repeatable)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of scenes; 0 returns the full ranking")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show retrieval counts and ranking parameters")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide index build progress")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, global *globalOptions, query string, opts searchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	defer setupCLILogging(cfg)()

	var renderer ui.Renderer = ui.Discard{}
	if !opts.quiet && opts.format == "text" {
		renderer = ui.NewRenderer(ui.Config{Output: cmd.ErrOrStderr()})
	}
	defer ui.Stop(renderer)

	rt, err := openEngine(ctx, cfg, renderer, nil)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	resp, err := rt.engine.SmartSearch(ctx, query, search.Options{
		TopKLexical:        opts.topKLexical,
		TopKSemantic:       opts.topKSemantic,
		MustHaveCharacters: opts.mustHave,
		Limit:              opts.limit,
		Explain:            opts.explain,
	})
	if err != nil {
		attrs := append([]slog.Attr{slog.String("query", query)}, errors.LogAttrs(err)...)
		slog.LogAttrs(ctx, slog.LevelError, "search_failed", attrs...)
		return err
	}

	words := cfg.Search.SnippetWords
	if opts.format == "json" {
		return writeJSON(cmd.OutOrStdout(), mcp.ToSmartSearchOutput(resp, words))
	}

	out := output.New(cmd.OutOrStdout())
	out.SearchResults(resp, words)
	if opts.explain {
		out.Explain(resp)
	}
	return nil
}

// writeJSONError reports err on stdout so --format json callers always
// get a parseable document.
func writeJSONError(w io.Writer, err error) {
	data, jerr := errors.FormatJSON(err)
	if jerr != nil {
		return
	}
	_, _ = fmt.Fprintln(w, string(data))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
