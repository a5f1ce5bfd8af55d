package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fxledger/internal/amqp"
	"fxledger/internal/backend"
	"fxledger/internal/budget"
	"fxledger/internal/cli"
	apphttp "fxledger/internal/http"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/middleware/ratelimit"
	"fxledger/internal/tools"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, "fxledger")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	rateStack, err := backend.NewRates(cfg)
	if err != nil {
		logger.Error("Failed to initialize rate providers", log.FieldError, err)
		closeStore(logger, store)
		os.Exit(1)
	}

	opts := []ledger.Option{ledger.WithConcurrency(cfg.ImportConcurrency)}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The ledger still accepts writes; events are simply not published.
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
			amqpClient = nil
		} else {
			opts = append(opts, ledger.WithPublisher(amqpClient))
			logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ledgerSvc, err := ledger.NewService(store.Store, rateStack.Provider, cfg.BaseCurrency, opts...)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err)
		closeStore(logger, store)
		os.Exit(1)
	}
	budgetSvc := budget.NewService(store.Store, ledgerSvc)
	registry := tools.New(tools.Deps{
		Ledger:  ledgerSvc,
		Budgets: budgetSvc,
		Rates:   rateStack.Provider,
		Crypto:  rateStack.Crypto,
	})

	limitCfg := ratelimit.Config{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}
	var (
		limiter     ratelimit.Limiter
		stopLimiter func()
	)
	if cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, limitCfg)
		if err != nil {
			logger.Warn("Redis unavailable, using in-memory rate limiter", log.FieldError, err, "addr", cfg.RedisAddr)
		} else {
			limiter = redisLimiter
			stopLimiter = func() { _ = redisLimiter.Close() }
		}
	}
	if limiter == nil {
		memLimiter := ratelimit.NewMemoryLimiter(limitCfg)
		limiter = memLimiter
		stopLimiter = memLimiter.Stop
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		TrustedProxies:  cfg.TrustedProxies,
		Limiter:         limiter,
		RateLimitWindow: cfg.RateLimitWindow,
	}, apphttp.Deps{
		Ledger:  ledgerSvc,
		Budgets: budgetSvc,
		Tools:   registry,
		Store:   store.Store,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", log.FieldError, err)
		closeStore(logger, store)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopLimiter()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		closeStore(logger, store)
	})

	logger.Info("Starting fxledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldBase, ledgerSvc.BaseCurrency())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func closeStore(logger *slog.Logger, store *backend.Result) {
	if err := store.Cleanup(); err != nil {
		logger.Warn("Storage close error", log.FieldError, err)
	}
}
