// Package ledger defines the Ledger Store contract: aggregate queries over
// a user's transactions plus the mutations the services layer performs.
package ledger

import (
	"context"

	"ledger/internal/core"
)

type (
	TypeTotals struct {
		Income  core.Money
		Expense core.Money
		Count   int64
	}

	CategoryTotal struct {
		CategoryID   *int64
		CategoryName string
		Color        string
		Icon         string
		Amount       core.Money
		Count        int64
	}

	// MonthTotals is one YYYY-MM bucket. Stores may omit empty months.
	MonthTotals struct {
		Month   string
		Income  core.Money
		Expense core.Money
	}

	CategoryMonthTotal struct {
		Month  string
		Amount core.Money
		Count  int64
	}

	TransactionFilter struct {
		UserID     int64
		Range      core.DateRange
		Type       core.TransactionType
		CategoryID *int64
		Search     string
		Page       int
		PageSize   int
	}

	TransactionPage struct {
		Items    []core.Transaction `json:"items"`
		Total    int64              `json:"total"`
		Page     int                `json:"page"`
		PageSize int                `json:"pageSize"`
	}
)

// Default and maximum page sizes for transaction listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps Offset far from int overflow.
	MaxPage = 1 << 20
)

// Normalize clamps paging values.
func (f TransactionFilter) Normalize() TransactionFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	return f
}

// Offset returns the row offset of the page.
func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Ports for the Ledger Store.
type (
	// Reader answers the aggregate queries analytics needs.
	Reader interface {
		SumAmountsByType(ctx context.Context, userID int64, r core.DateRange) (TypeTotals, error)
		SumAmountsByCategory(ctx context.Context, userID int64, t core.TransactionType, r core.DateRange) ([]CategoryTotal, error)
		SumAmountsByMonth(ctx context.Context, userID int64, r core.DateRange) ([]MonthTotals, error)
		// SumCategoryByMonth sums one category per month. A nil categoryID
		// selects uncategorized expenses.
		SumCategoryByMonth(ctx context.Context, userID int64, categoryID *int64, r core.DateRange) ([]CategoryMonthTotal, error)
	}

	Catalog interface {
		ListCategories(ctx context.Context, t core.TransactionType) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	TransactionLister interface {
		ListTransactions(ctx context.Context, f TransactionFilter) (TransactionPage, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	}

	Writer interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error

		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	Users interface {
		GetUser(ctx context.Context, id int64) (core.UserProfile, error)
		CreateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error)
		UpdateUser(ctx context.Context, u core.UserProfile) (core.UserProfile, error)
	}

	// Store is the full ledger backend.
	Store interface {
		Reader
		Catalog
		TransactionLister
		Writer
		Users
	}

	// BudgetSource supplies the per-category budget lines of a user.
	BudgetSource interface {
		Budgets(ctx context.Context, userID int64) ([]core.BudgetLine, error)
	}
)
