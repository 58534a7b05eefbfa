package core

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	cases := []struct {
		p          Period
		start, end string
	}{
		{PeriodMonth, "2024-03-01", "2024-03-15"},
		{PeriodLastMonth, "2024-02-01", "2024-02-29"},
		{PeriodYear, "2024-01-01", "2024-03-15"},
		{PeriodAll, "", ""},
	}
	for _, tc := range cases {
		t.Run(string(tc.p), func(t *testing.T) {
			r, err := tc.p.Range(now)
			if err != nil {
				t.Fatal(err)
			}
			if r.Start.String() != tc.start || r.End.String() != tc.end {
				t.Fatalf("got %s, want %s..%s", r, tc.start, tc.end)
			}
		})
	}

	if _, err := Period("fortnight").Range(now); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestLastMonthAcrossYearBoundary(t *testing.T) {
	r, err := PeriodLastMonth.Range(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "2024-12-01..2024-12-31" {
		t.Fatalf("got %s", r)
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != PeriodMonth {
		t.Fatalf("empty should default to month, got %q %v", p, err)
	}
	if _, err := ParsePeriod("week"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestDateRange(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 1, 10), End: NewDate(2024, 1, 20)}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []Date{NewDate(2024, 1, 10), NewDate(2024, 1, 15), NewDate(2024, 1, 20)} {
		if !r.Contains(d) {
			t.Errorf("%s should be inside %s", d, r)
		}
	}
	if r.Contains(NewDate(2024, 1, 21)) || r.Contains(NewDate(2024, 1, 9)) {
		t.Error("bounds must be inclusive, not wider")
	}

	inverted := DateRange{Start: NewDate(2024, 2, 1), End: NewDate(2024, 1, 1)}
	if err := inverted.Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if !(DateRange{}).Contains(NewDate(1990, 1, 1)) {
		t.Error("unbounded range should contain everything")
	}
}

func TestMonthWindow(t *testing.T) {
	months, r := MonthWindow(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 4)
	want := []string{"2023-11", "2023-12", "2024-01", "2024-02"}
	if len(months) != len(want) {
		t.Fatalf("got %v", months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("got %v, want %v", months, want)
		}
	}
	if r.String() != "2023-11-01..2024-02-29" {
		t.Fatalf("got %s", r)
	}
}
