package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"fxledger/internal/amqp"
	"fxledger/internal/backend"
	"fxledger/internal/budget"
	"fxledger/internal/cli"
	"fxledger/internal/config"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/sheets"
	"fxledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "fxledger-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	logger.Info("Starting fxledger-worker", "queue", cfg.AMQPQueue)

	var mirror worker.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		m, err := sheets.New(context.Background(), sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		mirror = m
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Budgets read the rows the API wrote, so they need a shared store.
	var (
		budgets worker.BudgetChecker
		store   *backend.Result
	)
	if backend.BackendType(cfg.DataBackend) != backend.MemoryBackend {
		var err error
		store, budgets, err = openBudgets(context.Background(), logger, cfg)
		if err != nil {
			logger.Error("Failed to initialize budget checks", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("Budget alerts disabled - memory backend is not shared with the API")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if store != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Storage close error", log.FieldError, err)
			}
		}
	})

	w := worker.New(mirror, budgets)
	if err := client.ConsumeTransactionRecorded(ctx, w.HandleTransactionRecorded); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func openBudgets(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.Result, worker.BudgetChecker, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, err
	}
	rateStack, err := backend.NewRates(cfg)
	if err != nil {
		_ = store.Cleanup()
		return nil, nil, err
	}
	ledgerSvc, err := ledger.NewService(store.Store, rateStack.Provider, cfg.BaseCurrency)
	if err != nil {
		_ = store.Cleanup()
		return nil, nil, err
	}
	return store, budget.NewService(store.Store, ledgerSvc), nil
}
