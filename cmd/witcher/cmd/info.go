package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/profiling"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

func newInfoCmd(global *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Load the corpus and report index statistics",
		Long: `Load the corpus, build both indexes and report corpus vocabulary,
index backends, the active embedder and build time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, global, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runInfo(cmd *cobra.Command, global *globalOptions, jsonOutput bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	defer setupCLILogging(cfg)()

	rt, err := openEngine(ctx, cfg, ui.Discard{}, nil)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	info := statusInfo(ctx, rt)
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func statusInfo(ctx context.Context, rt *runtime) ui.StatusInfo {
	stats := rt.scenes.Stats()
	emb := embed.GetInfo(ctx, rt.embedder)

	status := "offline"
	if emb.Available {
		status = "ready"
	}

	return ui.StatusInfo{
		CorpusPath:     rt.cfg.Corpus.Path,
		Scenes:         stats.Scenes,
		Characters:     stats.Characters,
		Locations:      stats.Locations,
		EventTags:      stats.EventTags,
		LexicalBackend: rt.indexes.Lexical.Backend(),
		VectorBackend:  rt.indexes.Vector.Backend(),
		Dimensions:     rt.indexes.Vector.Dimensions(),
		EmbedderType:   emb.Provider.String(),
		EmbedderStatus: status,
		EmbedderModel:  emb.Model,
		Recognizer:     rt.extractor.RecognizerName(),
		BuildMS:        rt.indexes.Stats.Total.Milliseconds(),
		HeapInUse:      profiling.FormatBytes(profiling.HeapInUse()),
	}
}
