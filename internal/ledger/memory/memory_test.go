package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

func ptr(v int64) *int64 { return &v }

func seed(t *testing.T) (*Store, core.Category, core.Category) {
	t.Helper()
	s := New()
	ctx := context.Background()
	food, err := s.CreateCategory(ctx, core.Category{Name: "Food", Type: core.Expense, Color: "#FF0000"})
	if err != nil {
		t.Fatal(err)
	}
	salary, err := s.CreateCategory(ctx, core.Category{Name: "Salary", Type: core.Income, Color: "#00FF00"})
	if err != nil {
		t.Fatal(err)
	}
	add := func(user int64, cat *int64, typ core.TransactionType, cents int64, d core.Date) {
		t.Helper()
		_, err := s.CreateTransaction(ctx, core.Transaction{
			UserID: user, CategoryID: cat, Type: typ, Amount: core.Cents(cents),
			Description: "t", TransactionDate: d,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	add(1, &salary.ID, core.Income, 500000, core.NewDate(2024, 1, 5))
	add(1, &food.ID, core.Expense, 1200, core.NewDate(2024, 1, 6))
	add(1, nil, core.Expense, 800, core.NewDate(2024, 3, 1))
	add(2, &food.ID, core.Expense, 9900, core.NewDate(2024, 1, 6))
	return s, food, salary
}

func TestSums(t *testing.T) {
	s, food, _ := seed(t)
	ctx := context.Background()

	tt, err := s.SumAmountsByType(ctx, 1, core.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if tt.Income.Cents != 500000 || tt.Expense.Cents != 2000 || tt.Count != 3 {
		t.Fatalf("unexpected totals %+v", tt)
	}

	jan := core.DateRange{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}
	cats, err := s.SumAmountsByCategory(ctx, 1, core.Expense, jan)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || *cats[0].CategoryID != food.ID || cats[0].Amount.Cents != 1200 {
		t.Fatalf("unexpected category totals %+v", cats)
	}

	months, err := s.SumAmountsByMonth(ctx, 1, core.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0].Month != "2024-01" || months[1].Month != "2024-03" {
		t.Fatalf("unexpected months %+v", months)
	}

	unc, err := s.SumCategoryByMonth(ctx, 1, nil, core.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if len(unc) != 1 || unc[0].Amount.Cents != 800 {
		t.Fatalf("unexpected uncategorized trend %+v", unc)
	}
}

func TestCategoryRules(t *testing.T) {
	s, food, _ := seed(t)
	ctx := context.Background()

	changed := food
	changed.Type = core.Income
	if _, err := s.UpdateCategory(ctx, changed); !errors.Is(err, core.ErrCategoryTypeImmutable) {
		t.Fatalf("expected ErrCategoryTypeImmutable, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, core.Category{Name: "food", Type: core.Expense, Color: "#000000"}); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	// Same name with the other type is allowed.
	if _, err := s.CreateCategory(ctx, core.Category{Name: "Food", Type: core.Income, Color: "#000000"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if err := s.DeleteCategory(ctx, food.ID); err != nil {
		t.Fatal(err)
	}
	cats, _ := s.SumAmountsByCategory(ctx, 2, core.Expense, core.DateRange{})
	if len(cats) != 1 || cats[0].CategoryID != nil || cats[0].CategoryName != core.UncategorizedName {
		t.Fatalf("transactions of a deleted category should be uncategorized, got %+v", cats)
	}
}

func TestTransactionOwnership(t *testing.T) {
	s, food, _ := seed(t)
	ctx := context.Background()
	page, err := s.ListTransactions(ctx, ledger.TransactionFilter{UserID: 2})
	if err != nil || page.Total != 1 {
		t.Fatalf("unexpected page %+v err=%v", page, err)
	}
	tx := page.Items[0]
	if _, err := s.GetTransaction(ctx, 1, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user 1 must not see user 2 rows, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, 1, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user 1 must not delete user 2 rows, got %v", err)
	}
	tx.CategoryID = ptr(food.ID + 100)
	if _, err := s.UpdateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown category should fail, got %v", err)
	}
}

func TestListTransactionsPaging(t *testing.T) {
	s, _, _ := seed(t)
	page, err := s.ListTransactions(context.Background(), ledger.TransactionFilter{UserID: 1, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].TransactionDate.String() != "2024-03-01" {
		t.Fatalf("expected newest first, got %s", page.Items[0].TransactionDate)
	}
	page, _ = s.ListTransactions(context.Background(), ledger.TransactionFilter{UserID: 1, PageSize: 2, Page: 3})
	if len(page.Items) != 0 {
		t.Fatalf("expected empty page, got %+v", page.Items)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background(), "")
	if len(cats) != len(DefaultCategories) {
		t.Fatalf("expected defaults when file missing, got %d", len(cats))
	}

	content := "# type;name;color;icon\nexpense;Rent;#123456;🏠\nincome;Bonus;#abcdef\nbroken line\nexpense;Bad;red\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background(), "")
	if len(cats) != 2 {
		t.Fatalf("unexpected cats: %+v", cats)
	}
	exp, _ := s.ListCategories(context.Background(), core.Expense)
	if len(exp) != 1 || exp[0].Name != "Rent" {
		t.Fatalf("unexpected expense cats: %+v", exp)
	}
}
