// Package analytics computes derived financial views from the ledger and
// serves them through the cache.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// Trend window bounds and insight thresholds.
const (
	MinTrendMonths     = 1
	MaxTrendMonths     = 24
	SummaryTrendMonths = 12

	// HighShareThreshold is the share of monthly expenses above which a
	// category gets a spending-reduction recommendation.
	HighShareThreshold = 30
	// SavingsTargetPercent is the suggested cut for such a category.
	SavingsTargetPercent = 10
)

// DataAccessError reports a ledger failure during a computation.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("analytics %s: data access: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func dataErr(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}

// Engine is a pure computation layer over the ledger. It does no caching.
type Engine struct {
	ledger  ledger.Reader
	budgets ledger.BudgetSource
	now     func() time.Time
}

func NewEngine(reader ledger.Reader, budgets ledger.BudgetSource) *Engine {
	return &Engine{ledger: reader, budgets: budgets, now: time.Now}
}

// WithClock replaces the time source used for relative periods.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) ComputeStatistics(ctx context.Context, userID int64, r core.DateRange) (core.Statistics, error) {
	if err := r.Validate(); err != nil {
		return core.Statistics{}, err
	}
	tt, err := e.ledger.SumAmountsByType(ctx, userID, r)
	if err != nil {
		return core.Statistics{}, dataErr("statistics", err)
	}
	return core.Statistics{
		TotalIncome:      tt.Income,
		TotalExpense:     tt.Expense,
		NetIncome:        tt.Income.Sub(tt.Expense),
		TransactionCount: tt.Count,
	}, nil
}

// ComputeCategoryBreakdown returns one entry per category with amounts of
// type t, largest first. Ties order by category id with the uncategorized
// bucket last.
func (e *Engine) ComputeCategoryBreakdown(ctx context.Context, userID int64, t core.TransactionType, r core.DateRange) ([]core.CategoryBreakdownEntry, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	totals, err := e.ledger.SumAmountsByCategory(ctx, userID, t, r)
	if err != nil {
		return nil, dataErr("category breakdown", err)
	}

	var sum core.Money
	for _, ct := range totals {
		sum = sum.Add(ct.Amount)
	}

	out := make([]core.CategoryBreakdownEntry, 0, len(totals))
	for _, ct := range totals {
		name := ct.CategoryName
		if ct.CategoryID == nil {
			name = core.UncategorizedName
		}
		out = append(out, core.CategoryBreakdownEntry{
			CategoryID:       ct.CategoryID,
			CategoryName:     name,
			Amount:           ct.Amount,
			Percentage:       core.Percent(ct.Amount, sum),
			Color:            ct.Color,
			Icon:             ct.Icon,
			TransactionCount: ct.Count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		switch {
		case a.CategoryID == nil:
			return false
		case b.CategoryID == nil:
			return true
		default:
			return *a.CategoryID < *b.CategoryID
		}
	})
	return out, nil
}

func checkMonths(months int) error {
	if months < MinTrendMonths || months > MaxTrendMonths {
		return fmt.Errorf("%w: months must be between %d and %d, got %d",
			core.ErrInvalidPeriod, MinTrendMonths, MaxTrendMonths, months)
	}
	return nil
}

// ComputeMonthlyTrends returns exactly months entries ending at the current
// month, oldest first, with empty months zero-filled.
func (e *Engine) ComputeMonthlyTrends(ctx context.Context, userID int64, months int) ([]core.MonthlyTrendEntry, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	keys, window := core.MonthWindow(e.now(), months)
	totals, err := e.ledger.SumAmountsByMonth(ctx, userID, window)
	if err != nil {
		return nil, dataErr("monthly trends", err)
	}
	byMonth := make(map[string]ledger.MonthTotals, len(totals))
	for _, mt := range totals {
		byMonth[mt.Month] = mt
	}

	out := make([]core.MonthlyTrendEntry, len(keys))
	for i, k := range keys {
		mt := byMonth[k]
		out[i] = core.MonthlyTrendEntry{
			Month:     k,
			Income:    mt.Income,
			Expense:   mt.Expense,
			NetIncome: mt.Income.Sub(mt.Expense),
		}
	}
	return out, nil
}

// ComputeCategoryTrends is ComputeMonthlyTrends for a single category.
func (e *Engine) ComputeCategoryTrends(ctx context.Context, userID int64, categoryID *int64, months int) ([]core.CategoryTrendEntry, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	keys, window := core.MonthWindow(e.now(), months)
	totals, err := e.ledger.SumCategoryByMonth(ctx, userID, categoryID, window)
	if err != nil {
		return nil, dataErr("category trends", err)
	}
	byMonth := make(map[string]ledger.CategoryMonthTotal, len(totals))
	for _, ct := range totals {
		byMonth[ct.Month] = ct
	}

	out := make([]core.CategoryTrendEntry, len(keys))
	for i, k := range keys {
		ct := byMonth[k]
		out[i] = core.CategoryTrendEntry{Month: k, Amount: ct.Amount, TransactionCount: ct.Count}
	}
	return out, nil
}

// ComputeSummary assembles statistics, the expense breakdown over r and the
// last SummaryTrendMonths months of trends. The parts run concurrently; any
// failure fails the whole summary.
func (e *Engine) ComputeSummary(ctx context.Context, userID int64, period core.Period, r core.DateRange) (core.AnalyticsSummary, error) {
	if err := r.Validate(); err != nil {
		return core.AnalyticsSummary{}, err
	}
	var (
		stats     core.Statistics
		breakdown []core.CategoryBreakdownEntry
		trends    []core.MonthlyTrendEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = e.ComputeStatistics(gctx, userID, r)
		return err
	})
	g.Go(func() (err error) {
		breakdown, err = e.ComputeCategoryBreakdown(gctx, userID, core.Expense, r)
		return err
	})
	g.Go(func() (err error) {
		trends, err = e.ComputeMonthlyTrends(gctx, userID, SummaryTrendMonths)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.AnalyticsSummary{}, err
	}

	return core.AnalyticsSummary{
		UserID:            userID,
		Period:            period,
		StartDate:         r.Start,
		EndDate:           r.End,
		TotalIncome:       stats.TotalIncome,
		TotalExpenses:     stats.TotalExpense,
		NetIncome:         stats.NetIncome,
		TransactionCount:  stats.TransactionCount,
		CategoryBreakdown: breakdown,
		MonthlyTrends:     trends,
	}, nil
}

// ComputeBudgetComparison compares expense spending in period against the
// user's budget lines. Lines match spending by category id when they carry
// one, otherwise by case-insensitive category name.
func (e *Engine) ComputeBudgetComparison(ctx context.Context, userID int64, period core.Period) (core.BudgetComparison, error) {
	r, err := period.Range(e.now())
	if err != nil {
		return core.BudgetComparison{}, err
	}
	lines, err := e.budgets.Budgets(ctx, userID)
	if err != nil {
		return core.BudgetComparison{}, dataErr("budgets", err)
	}
	spent, err := e.ledger.SumAmountsByCategory(ctx, userID, core.Expense, r)
	if err != nil {
		return core.BudgetComparison{}, dataErr("budget comparison", err)
	}

	byID := make(map[int64]core.Money, len(spent))
	byName := make(map[string]core.Money, len(spent))
	for _, ct := range spent {
		if ct.CategoryID != nil {
			byID[*ct.CategoryID] = byID[*ct.CategoryID].Add(ct.Amount)
			byName[strings.ToLower(ct.CategoryName)] = byName[strings.ToLower(ct.CategoryName)].Add(ct.Amount)
		}
	}

	out := core.BudgetComparison{
		Period:     period,
		StartDate:  r.Start,
		EndDate:    r.End,
		Categories: make([]core.BudgetCategory, 0, len(lines)),
	}
	for _, line := range lines {
		var used core.Money
		if line.CategoryID != nil {
			used = byID[*line.CategoryID]
		} else {
			used = byName[strings.ToLower(strings.TrimSpace(line.CategoryName))]
		}
		out.Categories = append(out.Categories, core.BudgetCategory{
			CategoryID:      line.CategoryID,
			CategoryName:    line.CategoryName,
			BudgetAmount:    line.Amount,
			SpentAmount:     used,
			RemainingAmount: line.Amount.Sub(used),
			PercentageUsed:  core.Percent(used, line.Amount),
		})
		out.TotalBudget = out.TotalBudget.Add(line.Amount)
		out.TotalSpent = out.TotalSpent.Add(used)
	}
	out.RemainingBudget = out.TotalBudget.Sub(out.TotalSpent)
	return out, nil
}
