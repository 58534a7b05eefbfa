package backend

import (
	"ledger/internal/analytics"
	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/invalidation"
	"ledger/internal/log"
	"ledger/internal/services"
)

// App is the wired service graph shared by every binary.
type App struct {
	Stores       *Stores
	Cache        *cache.Manager
	Coordinator  *invalidation.Coordinator
	Analytics    *analytics.Service
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Users        *services.UserService
}

// NewApp wires services over opened stores. publisher may be nil, in which
// case no warm requests are sent.
func NewApp(stores *Stores, cfg *config.Config, publisher services.WarmPublisher, logger *log.Logger) *App {
	codec := cache.DefaultCodec()
	codec.Compress = cfg.CacheCompression
	codec.MinCompressBytes = cfg.CacheCompressMinBytes

	cm := cache.NewManager(stores.Cache, cache.Options{
		OpTimeout:   cfg.CacheOpTimeout,
		ScanTimeout: cfg.CacheScanTimeout,
		DeleteBatch: cfg.CacheDeleteBatch,
		Codec:       &codec,
		Logger:      logger,
	})
	coordinator := invalidation.NewCoordinator(cm, logger)
	engine := analytics.NewEngine(stores.Ledger, stores.Budgets)

	return &App{
		Stores:       stores,
		Cache:        cm,
		Coordinator:  coordinator,
		Analytics:    analytics.NewService(engine, cm, stores.Ledger, coordinator, logger),
		Transactions: services.NewTransactionService(stores.Ledger, cm, coordinator, publisher, logger),
		Categories:   services.NewCategoryService(stores.Ledger, cm, coordinator, logger),
		Users:        services.NewUserService(stores.Ledger, cm, coordinator, logger),
	}
}
