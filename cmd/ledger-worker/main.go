package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fxledger/internal/amqp"
	"fxledger/internal/cli"
	"fxledger/internal/config"
	"fxledger/internal/log"
	"fxledger/internal/sheets"
	gsheet "fxledger/internal/sheets/google"
	"fxledger/internal/worker"
)

const statsInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cfg = cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Starting ledger-worker")

	// The journal is optional; without it events are only logged.
	var journal sheets.JournalWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		journal = client
		logger.Info("Google Sheets journal enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewLedgerEventWorker(journal)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				handled, failed := w.Stats()
				logger.Info("Ledger events processed", "handled", handled, "failed", failed)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		amqpClient.Close()
		os.Exit(1)
	}

	handled, failed := w.Stats()
	logger.Info("Worker shutdown complete", "handled", handled, "failed", failed)
}
