package main

import (
	"context"
	"errors"
	"os"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig()
	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Worker cannot start", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting ledger-worker",
		"queue", cfg.AMQPQueue,
		"ledger_backend", cfg.LedgerBackend,
		"cache_backend", cfg.CacheBackend)

	stores, err := backend.NewFactory(logger).Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open stores", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient := cli.ConnectAMQP(cfg, logger)
	if amqpClient == nil {
		_ = stores.Close()
		os.Exit(1)
	}

	// The worker only warms; it never publishes further warm requests.
	app := backend.NewApp(stores, cfg, nil, logger)
	warmer := worker.NewWarmWorker(app.Analytics)

	janitor := cache.NewJanitor(logger)
	janitor.Register(stores.Cache)
	janitor.Start(cfg.CacheSweepInterval)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		janitor.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := stores.Close(); err != nil {
			logger.Warn("Store close error", log.FieldError, err)
		}
	})

	go func() {
		err := amqpClient.ConsumeCacheWarm(ctx, warmer.HandleWarmMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
