package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, logger := cli.LoadConfig()
	logger.Info("Starting ledger API",
		"port", cfg.Port,
		"ledger_backend", cfg.LedgerBackend,
		"cache_backend", cfg.CacheBackend)

	stores, err := backend.NewFactory(logger).Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open stores",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}

	amqpClient := cli.ConnectAMQP(cfg, logger)
	app := backend.NewApp(stores, cfg, cli.Publisher(amqpClient), logger)

	janitor := cache.NewJanitor(logger)
	janitor.Register(stores.Cache)
	janitor.Start(cfg.CacheSweepInterval)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Analytics:    app.Analytics,
		Transactions: app.Transactions,
		Categories:   app.Categories,
		Users:        app.Users,
		Ready:        readiness(stores),
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		janitor.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := stores.Close(); err != nil {
			logger.Warn("Store close error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// readiness pings the ledger when the backend supports it. The cache is
// reported but never fails readiness.
func readiness(stores *backend.Stores) func(context.Context) error {
	p, ok := stores.Ledger.(pinger)
	if !ok {
		return nil
	}
	return p.Ping
}
