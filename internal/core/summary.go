package core

import "github.com/shopspring/decimal"

// UncategorizedName labels amounts without a category.
const UncategorizedName = "Uncategorized"

type Statistics struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpense     Money `json:"totalExpense"`
	NetIncome        Money `json:"netIncome"`
	TransactionCount int64 `json:"transactionCount"`
}

type CategoryBreakdownEntry struct {
	CategoryID       *int64          `json:"categoryId"`
	CategoryName     string          `json:"categoryName"`
	Amount           Money           `json:"amount"`
	Percentage       decimal.Decimal `json:"percentage"`
	Color            string          `json:"color,omitempty"`
	Icon             string          `json:"icon,omitempty"`
	TransactionCount int64           `json:"transactionCount"`
}

type MonthlyTrendEntry struct {
	Month     string `json:"month"`
	Income    Money  `json:"income"`
	Expense   Money  `json:"expense"`
	NetIncome Money  `json:"netIncome"`
}

type CategoryTrendEntry struct {
	Month            string `json:"month"`
	Amount           Money  `json:"amount"`
	TransactionCount int64  `json:"transactionCount"`
}

type AnalyticsSummary struct {
	UserID            int64                    `json:"userId"`
	Period            Period                   `json:"period"`
	StartDate         Date                     `json:"startDate"`
	EndDate           Date                     `json:"endDate"`
	TotalIncome       Money                    `json:"totalIncome"`
	TotalExpenses     Money                    `json:"totalExpenses"`
	NetIncome         Money                    `json:"netIncome"`
	TransactionCount  int64                    `json:"transactionCount"`
	CategoryBreakdown []CategoryBreakdownEntry `json:"categoryBreakdown"`
	MonthlyTrends     []MonthlyTrendEntry      `json:"monthlyTrends"`
}

type BudgetLine struct {
	CategoryID   *int64 `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Amount       Money  `json:"amount"`
}

type BudgetCategory struct {
	CategoryID      *int64          `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	BudgetAmount    Money           `json:"budgetAmount"`
	SpentAmount     Money           `json:"spentAmount"`
	RemainingAmount Money           `json:"remainingAmount"`
	PercentageUsed  decimal.Decimal `json:"percentageUsed"`
}

type BudgetComparison struct {
	Period          Period           `json:"period"`
	StartDate       Date             `json:"startDate"`
	EndDate         Date             `json:"endDate"`
	TotalBudget     Money            `json:"totalBudget"`
	TotalSpent      Money            `json:"totalSpent"`
	RemainingBudget Money            `json:"remainingBudget"`
	Categories      []BudgetCategory `json:"categories"`
}

// Insight levels.
const (
	InsightInfo    = "info"
	InsightWarning = "warning"
	InsightSuccess = "success"
)

type Insight struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Value   decimal.Decimal `json:"value"`
}

type Recommendation struct {
	Type             string `json:"type"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	CategoryID       *int64 `json:"categoryId"`
	CategoryName     string `json:"categoryName"`
	PotentialSavings Money  `json:"potentialSavings"`
}

type Insights struct {
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}
