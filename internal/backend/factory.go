package backend

import (
	"context"
	"fmt"

	"ledger/internal/budget"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/ledger"
	"ledger/internal/ledger/memory"
	"ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/storage"
	"ledger/internal/storage/postgres"
)

// Factory opens stores from application configuration.
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Open opens the ledger store, the cache store and the budget source. On
// error everything opened so far is closed.
func (f *Factory) Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	stores := &Stores{}

	ledgerStore, cleanup, err := f.openLedger(cfg)
	if err != nil {
		return nil, err
	}
	stores.Ledger = ledgerStore
	stores.addCleanup(cleanup)

	cacheStore, err := f.openCache(ctx, cfg)
	if err != nil {
		stores.Close()
		return nil, err
	}
	stores.Cache = cacheStore
	stores.addCleanup(cacheStore.Close)

	budgets, err := f.openBudgets(ctx, cfg)
	if err != nil {
		stores.Close()
		return nil, err
	}
	stores.Budgets = budgets

	return stores, nil
}

func (f *Factory) openLedger(cfg *config.Config) (ledger.Store, CleanupFunc, error) {
	backendType := BackendType(cfg.LedgerBackend)
	if !backendType.IsValid() {
		return nil, nil, fmt.Errorf("invalid backend type: %s", cfg.LedgerBackend)
	}

	switch backendType {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite ledger", "db_path", cfg.SQLiteDBPath)
		return repo, repo.Close, nil

	case PostgresBackend:
		store, err := postgres.Open(cfg.PostgresDSN, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL ledger: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL ledger")
		return store, store.Close, nil

	default:
		var store *memory.Store
		if cfg.SeedDir != "" {
			store = memory.NewFromFiles(cfg.SeedDir)
		} else {
			store = memory.New(memory.DefaultCategories...)
		}
		f.logger.Info("Initialized memory ledger", "seed_dir", cfg.SeedDir)
		return store, nil, nil
	}
}

func (f *Factory) openCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.CacheBackend == "redis" {
		store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			ScanCount: int64(cfg.CacheDeleteBatch),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
		f.logger.Info("Initialized Redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return store, nil
	}
	f.logger.Info("Initialized memory cache", "max_entries", cfg.CacheMaxEntries)
	return cache.NewMemoryStore(cfg.CacheMaxEntries), nil
}

// openBudgets returns the static table, or the sheet with the static table
// as fallback.
func (f *Factory) openBudgets(ctx context.Context, cfg *config.Config) (ledger.BudgetSource, error) {
	if cfg.BudgetSource != "sheets" {
		return budget.Defaults(), nil
	}
	creds, err := gsheet.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}
	sheet, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		Range:           cfg.GoogleBudgetRange,
		CredentialsJSON: creds,
		CacheTTL:        cfg.BudgetCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets budget: %w", err)
	}
	f.logger.Info("Initialized Google Sheets budget", "range", cfg.GoogleBudgetRange)
	return budget.Fallback{Primary: sheet, Secondary: budget.Defaults(), Logger: f.logger}, nil
}
