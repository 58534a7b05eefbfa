package analytics

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/invalidation"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// Service is the cached analytics surface used by controllers and workers.
type Service struct {
	engine      *Engine
	cache       *cache.Manager
	catalog     ledger.Catalog
	coordinator *invalidation.Coordinator
	logger      *log.Logger
}

func NewService(engine *Engine, cm *cache.Manager, catalog ledger.Catalog, coordinator *invalidation.Coordinator, logger *log.Logger) *Service {
	return &Service{
		engine:      engine,
		cache:       cm,
		catalog:     catalog,
		coordinator: coordinator,
		logger:      logger.WithComponent(log.ComponentAnalytics),
	}
}

func (s *Service) summaryKey(userID int64, period core.Period, r core.DateRange) cache.Key {
	return cache.AnalyticsKey(userID, "summary", cache.RangeParams(r).Set("period", string(period)).Set("asof", s.asOf()))
}

// GetAnalyticsSummary resolves period against the current date and returns
// the cached or freshly computed summary. The key embeds the resolved range
// and the current month, so neither a stale range nor a stale trend window
// is served.
func (s *Service) GetAnalyticsSummary(ctx context.Context, userID int64, period core.Period) (core.AnalyticsSummary, error) {
	r, err := period.Range(s.engine.Now())
	if err != nil {
		return core.AnalyticsSummary{}, err
	}
	return s.summary(ctx, userID, period, r)
}

// GetAnalyticsSummaryForRange summarizes an explicit date range.
func (s *Service) GetAnalyticsSummaryForRange(ctx context.Context, userID int64, r core.DateRange) (core.AnalyticsSummary, error) {
	if err := r.Validate(); err != nil {
		return core.AnalyticsSummary{}, err
	}
	return s.summary(ctx, userID, core.PeriodCustom, r)
}

func (s *Service) summary(ctx context.Context, userID int64, period core.Period, r core.DateRange) (core.AnalyticsSummary, error) {
	key := s.summaryKey(userID, period, r)
	return cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (core.AnalyticsSummary, error) {
		s.logger.DebugContext(ctx, "Computing analytics summary", log.FieldUserID, userID, log.FieldPeriod, period)
		return s.engine.ComputeSummary(ctx, userID, period, r)
	})
}

// asOf pins month-relative keys to the current month.
func (s *Service) asOf() string {
	return core.DateOf(s.engine.Now()).MonthKey()
}

func (s *Service) GetMonthlyTrends(ctx context.Context, userID int64, months int) ([]core.MonthlyTrendEntry, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	p := cache.Params{}.Set("months", strconv.Itoa(months)).Set("asof", s.asOf())
	return cache.ReadThrough(ctx, s.cache, cache.AnalyticsKey(userID, "trends", p), func(ctx context.Context) ([]core.MonthlyTrendEntry, error) {
		return s.engine.ComputeMonthlyTrends(ctx, userID, months)
	})
}

// GetCategoryTrends returns a category's monthly totals. A nil categoryID
// selects uncategorized expenses.
func (s *Service) GetCategoryTrends(ctx context.Context, userID int64, categoryID *int64, months int) ([]core.CategoryTrendEntry, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	cat := "none"
	if categoryID != nil {
		cat = strconv.FormatInt(*categoryID, 10)
	}
	p := cache.Params{}.Set("category", cat).Set("months", strconv.Itoa(months)).Set("asof", s.asOf())
	return cache.ReadThrough(ctx, s.cache, cache.AnalyticsKey(userID, "category-trends", p), func(ctx context.Context) ([]core.CategoryTrendEntry, error) {
		return s.engine.ComputeCategoryTrends(ctx, userID, categoryID, months)
	})
}

func (s *Service) GetBudgetComparison(ctx context.Context, userID int64, period core.Period) (core.BudgetComparison, error) {
	r, err := period.Range(s.engine.Now())
	if err != nil {
		return core.BudgetComparison{}, err
	}
	key := cache.AnalyticsKey(userID, "budget", cache.RangeParams(r).Set("period", string(period)))
	return cache.ReadThrough(ctx, s.cache, key, func(ctx context.Context) (core.BudgetComparison, error) {
		return s.engine.ComputeBudgetComparison(ctx, userID, period)
	})
}

// GetFinancialInsights is cached on the default TTL.
func (s *Service) GetFinancialInsights(ctx context.Context, userID int64) (core.Insights, error) {
	p := cache.Params{}.Set("asof", core.DateOf(s.engine.Now()).String())
	return cache.ReadThrough(ctx, s.cache, cache.InsightsKey(userID, p), func(ctx context.Context) (core.Insights, error) {
		return s.engine.ComputeInsights(ctx, userID)
	})
}

// GetCategories returns the global category list, optionally filtered by type.
func (s *Service) GetCategories(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	return cache.ReadThrough(ctx, s.cache, cache.CategoriesKey(t), func(ctx context.Context) ([]core.Category, error) {
		cats, err := s.catalog.ListCategories(ctx, t)
		if err != nil {
			return nil, dataErr("categories", err)
		}
		return cats, nil
	})
}

func (s *Service) InvalidateUserAnalytics(ctx context.Context, userID int64) invalidation.Report {
	return s.coordinator.InvalidateUser(ctx, userID)
}

func (s *Service) InvalidateCategoriesCache(ctx context.Context) invalidation.Report {
	return s.coordinator.InvalidateCategories(ctx)
}

func (s *Service) GetCacheMetrics() cache.MetricsSnapshot { return s.cache.Metrics() }

func (s *Service) ResetCacheMetrics() { s.cache.ResetMetrics() }

// PingCache checks the cache store. Analytics keeps working without it.
func (s *Service) PingCache(ctx context.Context) error { return s.cache.Ping(ctx) }

// WarmCache recomputes and stores the global category list and the user's
// current-month summary. It only produces Set calls, so running it
// concurrently with readers or other warmers is safe.
func (s *Service) WarmCache(ctx context.Context, userID int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.catalog.ListCategories(gctx, "")
		if err != nil {
			return dataErr("warm categories", err)
		}
		_ = s.cache.Set(gctx, cache.CategoriesKey(""), cats)
		return nil
	})
	g.Go(func() error {
		r, err := core.PeriodMonth.Range(s.engine.Now())
		if err != nil {
			return err
		}
		summary, err := s.engine.ComputeSummary(gctx, userID, core.PeriodMonth, r)
		if err != nil {
			return err
		}
		_ = s.cache.Set(gctx, s.summaryKey(userID, core.PeriodMonth, r), summary)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Cache warm failed", log.FieldUserID, userID, log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "Cache warmed", log.FieldUserID, userID, log.FieldOperation, log.OpWarm)
	return nil
}
