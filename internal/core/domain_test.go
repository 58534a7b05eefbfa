package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 9))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-03-09"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-12-31"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-12-31" {
		t.Fatalf("got %s", d)
	}
	if err := json.Unmarshal([]byte(`"31/12/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:          1,
		CategoryID:      int64Ptr(3),
		Amount:          Cents(1250),
		Description:     "groceries",
		TransactionDate: NewDate(2025, 1, 1),
		Type:            Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*Transaction)) Transaction {
		tx := good
		f(&tx)
		return tx
	}
	bads := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"zero date", mutate(func(tx *Transaction) { tx.TransactionDate = Date{} }), ErrInvalidDate},
		{"empty description", mutate(func(tx *Transaction) { tx.Description = "  " }), ErrEmptyDescription},
		{"long description", mutate(func(tx *Transaction) { tx.Description = strings.Repeat("x", 256) }), ErrDescriptionTooLong},
		{"zero amount", mutate(func(tx *Transaction) { tx.Amount = Cents(0) }), ErrInvalidAmount},
		{"negative amount", mutate(func(tx *Transaction) { tx.Amount = Cents(-5) }), ErrInvalidAmount},
		{"bad type", mutate(func(tx *Transaction) { tx.Type = "transfer" }), ErrInvalidType},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCategoryValidate(t *testing.T) {
	cases := []struct {
		c    Category
		want error
	}{
		{Category{Name: "Food", Type: Expense, Color: "#FF8800"}, nil},
		{Category{Name: "Salary", Type: Income, Color: "#00aa00", Icon: "💼"}, nil},
		{Category{Name: "", Type: Expense, Color: "#FF8800"}, ErrEmptyName},
		{Category{Name: "Food", Type: "x", Color: "#FF8800"}, ErrInvalidType},
		{Category{Name: "Food", Type: Expense, Color: "FF8800"}, ErrInvalidColor},
		{Category{Name: "Food", Type: Expense, Color: "#FF88"}, ErrInvalidColor},
	}
	for i, tc := range cases {
		err := tc.c.Validate()
		if tc.want == nil && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}
