// Package budget provides budget sources for the comparison report.
package budget

import (
	"context"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// Static serves the same reference table to every user.
type Static []core.BudgetLine

var _ ledger.BudgetSource = Static(nil)

// Defaults is the reference monthly budget, matched to categories by name.
func Defaults() Static {
	return Static{
		{CategoryName: "Food & Dining", Amount: core.Cents(50000)},
		{CategoryName: "Transportation", Amount: core.Cents(20000)},
		{CategoryName: "Entertainment", Amount: core.Cents(15000)},
		{CategoryName: "Shopping", Amount: core.Cents(30000)},
		{CategoryName: "Bills & Utilities", Amount: core.Cents(40000)},
		{CategoryName: "Healthcare", Amount: core.Cents(10000)},
	}
}

func (s Static) Budgets(context.Context, int64) ([]core.BudgetLine, error) {
	out := make([]core.BudgetLine, len(s))
	copy(out, s)
	return out, nil
}

// Fallback reads from Primary and serves Secondary when it fails.
type Fallback struct {
	Primary   ledger.BudgetSource
	Secondary ledger.BudgetSource
	Logger    *log.Logger
}

func (f Fallback) Budgets(ctx context.Context, userID int64) ([]core.BudgetLine, error) {
	lines, err := f.Primary.Budgets(ctx, userID)
	if err == nil {
		return lines, nil
	}
	if f.Logger != nil {
		f.Logger.WarnContext(ctx, "Budget source failed, using fallback",
			log.FieldComponent, log.ComponentBudget,
			log.FieldUserID, userID,
			log.FieldError, err)
	}
	return f.Secondary.Budgets(ctx, userID)
}
