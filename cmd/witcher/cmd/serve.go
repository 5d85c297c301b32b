package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	witchererrors "github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/logging"
	"github.com/YauheniMa/witcher-bot/internal/mcp"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/ui"
	"github.com/YauheniMa/witcher-bot/internal/watcher"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		metricsAddr string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Load the corpus and serve smart_search and get_scene as MCP tools
over stdio.

stdout carries only JSON-RPC messages; logs go to the log file.
With --metrics-addr, Prometheus metrics are served on /metrics.
With --watch, the engine is rebuilt whenever the corpus file changes;
searches keep using the previous engine until the new one is ready.`,
		Example: `  # Register with an MCP client
  witcher serve --config-dir /path/to/corpus

  # Expose metrics
  witcher serve --metrics-addr 127.0.0.1:9464

  # Pick up corpus edits without restarting
  witcher serve --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), global, metricsAddr, watch)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the engine when the corpus file changes")

	return cmd
}

func runServe(ctx context.Context, global *globalOptions, metricsAddr string, watch bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Server.MetricsAddr = metricsAddr
	}
	if watch {
		cfg.Server.Watch = true
	}

	cleanup, err := logging.SetupMCPMode(loggingConfig(cfg))
	if err != nil {
		return err
	}
	defer cleanup()

	m := metrics.New()
	rt, err := openEngine(ctx, cfg, ui.Discard{}, m)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "engine_start_failed", witchererrors.LogAttrs(err)...)
		return err
	}
	reloader := newCorpusReloader(cfg, m, rt)
	defer func() { _ = reloader.Close() }()

	if cfg.Server.Watch {
		w, err := watcher.New([]string{cfg.Corpus.Path}, watcher.DefaultOptions())
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		go reloader.Watch(ctx, w)
		slog.Info("corpus_watch_enabled",
			slog.String("path", cfg.Corpus.Path),
			slog.String("type", w.WatcherType()))
	}

	if cfg.Server.MetricsAddr != "" {
		srv := startMetricsServer(cfg.Server.MetricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	server, err := mcp.NewServer(reloader.holder, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx, cfg.Server.Transport)
}

// startMetricsServer serves /metrics in the background.
func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics_server_started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", slog.String("error", err.Error()))
		}
	}()
	return srv
}
