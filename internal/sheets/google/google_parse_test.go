package google

import (
	"testing"
)

func TestParseBudgetRows_WithHeader(t *testing.T) {
	values := [][]interface{}{
		{"Amount", "Category", "CategoryId"},
		{500.0, "Food & Dining", "3"},
		{"200,50", "Transportation"},
		{"€ 1.200,00", "Housing"},
		{"", "Empty"},
		{"abc", "Broken"},
		{"100", "food & dining"},
		{"1900", "Total"},
		{"50", ""},
	}
	lines, err := parseBudgetRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	want := []struct {
		name  string
		cents int64
		id    int64
	}{
		{"Food & Dining", 60000, 3},
		{"Transportation", 20050, 0},
		{"Housing", 120000, 0},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), lines)
	}
	for i, w := range want {
		l := lines[i]
		if l.CategoryName != w.name || l.Amount.Cents != w.cents {
			t.Errorf("line %d: got %s=%d, want %s=%d", i, l.CategoryName, l.Amount.Cents, w.name, w.cents)
		}
		switch {
		case w.id == 0 && l.CategoryID != nil:
			t.Errorf("line %d: unexpected id %d", i, *l.CategoryID)
		case w.id != 0 && (l.CategoryID == nil || *l.CategoryID != w.id):
			t.Errorf("line %d: id %v, want %d", i, l.CategoryID, w.id)
		}
	}
}

func TestParseBudgetRows_NoHeader(t *testing.T) {
	lines, err := parseBudgetRows([][]interface{}{
		{"Shopping", "$1,250.75"},
		{"Healthcare", 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].Amount.Cents != 125075 || lines[1].Amount.Cents != 10000 {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestParseBudgetRows_BadHeader(t *testing.T) {
	if _, err := parseBudgetRows([][]interface{}{{"Category", "Budget"}}); err == nil {
		t.Fatal("expected an error for a header without Amount")
	}
}

func TestParseBudgetRows_Empty(t *testing.T) {
	lines, err := parseBudgetRows(nil)
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected no lines, got %+v %v", lines, err)
	}
}
