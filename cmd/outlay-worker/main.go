package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"outlay/internal/amqp"
	"outlay/internal/cli"
	applog "outlay/internal/log"
	"outlay/internal/sheets"
	gsheet "outlay/internal/sheets/google"
	memsheet "outlay/internal/sheets/memory"
	"outlay/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting export worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.ExportEnabled() {
		logger.Error("Export worker requires AMQP_URL to be set")
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg)
	defer repo.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Export to Google Sheets when a spreadsheet is configured, otherwise
	// keep rows in memory so the pipeline can be exercised locally.
	var exporter sheets.Exporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		exporter = memsheet.New()
		logger.Info("Google Sheets disabled - exporting to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewExportWorker(repo, exporter, cfg.SyncBatchSize, cfg.SyncInterval)

	// Catch up on anything that was stored while the worker was down.
	if err := w.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.Consume(ctx, func(msg *amqp.ExportMessage) error {
			return w.HandleMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		return w.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
