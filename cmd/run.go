package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipebase/pipebase-sub000/internal/bootstrap"
	_ "github.com/pipebase/pipebase-sub000/internal/builtin"
	"github.com/pipebase/pipebase-sub000/internal/config"
	"github.com/pipebase/pipebase-sub000/internal/log"
	"github.com/pipebase/pipebase-sub000/internal/metrics"
	"github.com/pipebase/pipebase-sub000/internal/observer"
)

var runManifestFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bootstrap a manifest and run it until shutdown",
	Long: `run loads the runtime config and a manifest, builds the dataflow
graph, starts every pipe's executor, and serves the context and metrics HTTP
endpoints until SIGINT/SIGTERM or a shutdown request arrives.

Examples:
  pipebase run -c config.yaml -f manifest.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runRunCommand()
	},
}

func init() {
	runCmd.Flags().StringVarP(&runManifestFile, "file", "f", "", "manifest file (overrides config's manifest.path)")
}

func runRunCommand() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("failed to load config", err)
	}
	if err := log.Init(cfg.Log); err != nil {
		exitWithError("failed to init logging", err)
	}

	manifestPath := cfg.Manifest.Path
	if runManifestFile != "" {
		manifestPath = runManifestFile
	}
	m, err := loadManifest(manifestPath)
	if err != nil {
		exitWithError("failed to load manifest", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := bootstrap.Build(ctx, m, cfg.Runtime.DefaultBufferSize, cfg.Runtime.ErrorBufferSize)
	if err != nil {
		exitWithError("failed to build graph", err)
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path).WithStore(g.Store())
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if cfg.Observer.Context.Enabled {
		ctxServer := observer.NewContextServer(cfg.Observer.Context.Listen, g.Store(), cancelRun)
		go func() {
			if err := ctxServer.Start(ctx); err != nil {
				slog.Error("context server stopped", "err", err)
			}
		}()
	}

	printEvery := parseDurationOrDefault(cfg.Runtime.ContextPrintEvery, 5*time.Second)
	go g.Store().Run(runCtx, printEvery)

	if err := g.Start(runCtx); err != nil {
		exitWithError("failed to start graph", err)
	}

	slog.Info("pipebase: graph running", "manifest", m.Name, "pipes", len(m.Pipes))
	g.Wait()
	fmt.Println("pipebase: graph stopped")
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
