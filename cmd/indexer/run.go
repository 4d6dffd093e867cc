package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"marketindexer/internal/api"
	"marketindexer/internal/config"
	"marketindexer/internal/indexer"
	"marketindexer/internal/indexer/processors"
	"marketindexer/internal/ledger"
	"marketindexer/internal/ledger/retry"
	"marketindexer/internal/logging"
	"marketindexer/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexing pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	slog.SetDefault(logging.New(cfg.LogLevel))
	slog.Info("Configuration loaded",
		"node_url", cfg.NodeURL,
		"processor", cfg.Processor,
		"processor_tasks", cfg.ProcessorTasks,
		"batch_size", cfg.BatchSize,
	)

	repository, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repository.Close()
	slog.Info("Database connected")

	processor, err := processors.New(cfg.Processor, repository)
	if err != nil {
		return err
	}

	client := ledger.NewClient(cfg.NodeURL, retry.NewStrategy(retry.LoadConfig()))
	fetcher := ledger.NewFetcher(client, cfg.BatchSize, cfg.ProcessorTasks)

	if cfg.MetricsAddr != "" {
		opsServer := api.NewServer(cfg.MetricsAddr, repository, processor.Name())
		opsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := opsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("Ops server shutdown failed", "error", err)
			}
		}()
	}

	tailer := indexer.NewTailer(indexer.Config{
		ProcessorTasks:      cfg.ProcessorTasks,
		EmitEvery:           cfg.EmitEvery,
		GapLookbackVersions: cfg.GapLookbackVersions,
		StartingVersion:     cfg.StartingVersion,
		CheckChainID:        cfg.CheckChainID,
	}, client, fetcher, repository, processor)

	return tailer.Run(ctx)
}
