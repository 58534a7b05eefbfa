package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Recommendation types.
const RecommendSpendingReduction = "spending_reduction"

// ComputeInsights compares the current month to date with the previous
// full calendar month.
func (e *Engine) ComputeInsights(ctx context.Context, userID int64) (core.Insights, error) {
	now := e.now()
	curRange, err := core.PeriodMonth.Range(now)
	if err != nil {
		return core.Insights{}, err
	}
	prevRange, err := core.PeriodLastMonth.Range(now)
	if err != nil {
		return core.Insights{}, err
	}

	cur, err := e.ComputeStatistics(ctx, userID, curRange)
	if err != nil {
		return core.Insights{}, err
	}
	prev, err := e.ComputeStatistics(ctx, userID, prevRange)
	if err != nil {
		return core.Insights{}, err
	}
	breakdown, err := e.ComputeCategoryBreakdown(ctx, userID, core.Expense, curRange)
	if err != nil {
		return core.Insights{}, err
	}

	out := core.Insights{Insights: []core.Insight{}, Recommendations: []core.Recommendation{}}

	if cur.TotalExpense.Cents > prev.TotalExpense.Cents {
		in := core.Insight{
			Type:  core.InsightWarning,
			Title: "Spending increased",
		}
		if prev.TotalExpense.Cents > 0 {
			change := core.Percent(cur.TotalExpense.Sub(prev.TotalExpense), prev.TotalExpense)
			in.Value = change
			in.Message = fmt.Sprintf("Your expenses are up %s%% compared to last month.", change.StringFixed(2))
		} else {
			in.Value = cur.TotalExpense.Decimal()
			in.Message = fmt.Sprintf("You spent %s this month and nothing last month.", cur.TotalExpense)
		}
		out.Insights = append(out.Insights, in)
	}

	if cur.NetIncome.Cents < 0 {
		out.Insights = append(out.Insights, core.Insight{
			Type:    core.InsightWarning,
			Title:   "Negative cash flow",
			Message: fmt.Sprintf("Expenses exceed income by %s this month.", core.Cents(-cur.NetIncome.Cents)),
			Value:   cur.NetIncome.Decimal(),
		})
	} else {
		out.Insights = append(out.Insights, core.Insight{
			Type:    core.InsightSuccess,
			Title:   "You saved",
			Message: fmt.Sprintf("You saved %s this month.", cur.NetIncome),
			Value:   cur.NetIncome.Decimal(),
		})
	}

	for _, b := range breakdown {
		if !exceedsShare(b.Amount, cur.TotalExpense, HighShareThreshold) {
			continue
		}
		savings := b.Amount.Fraction(SavingsTargetPercent)
		out.Recommendations = append(out.Recommendations, core.Recommendation{
			Type:  RecommendSpendingReduction,
			Title: fmt.Sprintf("Reduce %s spending", b.CategoryName),
			Description: fmt.Sprintf("%s is %s%% of your expenses this month. Cutting it by %d%% would save %s.",
				b.CategoryName, b.Percentage.StringFixed(2), SavingsTargetPercent, savings),
			CategoryID:       b.CategoryID,
			CategoryName:     b.CategoryName,
			PotentialSavings: savings,
		})
	}
	return out, nil
}

// exceedsShare reports part > pct% of total on exact cents.
func exceedsShare(part, total core.Money, pct int64) bool {
	if total.Cents <= 0 {
		return false
	}
	p := decimal.NewFromInt(part.Cents).Mul(decimal.NewFromInt(100))
	return p.GreaterThan(decimal.NewFromInt(total.Cents).Mul(decimal.NewFromInt(pct)))
}
