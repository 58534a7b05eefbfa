package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Cents(3000), Cents(-1005)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":30.00,"b":-10.05}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var out struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":12.345,"b":"7.1"}`), &out); err != nil {
		t.Fatal(err)
	}
	if out.A.Cents != 1235 || out.B.Cents != 710 {
		t.Fatalf("got %d and %d", out.A.Cents, out.B.Cents)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, total int64
		want        string
	}{
		{3000, 5000, "60"},
		{1000, 5000, "20"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{1, 8, "12.5"},
		{500, 0, "0"},
	}
	for _, tc := range cases {
		got := Percent(Cents(tc.part), Cents(tc.total))
		if got.String() != tc.want {
			t.Errorf("Percent(%d,%d) = %s, want %s", tc.part, tc.total, got, tc.want)
		}
	}
}

func TestMoneyFraction(t *testing.T) {
	if got := Cents(12345).Fraction(10); got.Cents != 1235 {
		t.Fatalf("expected 1235, got %d", got.Cents)
	}
	if got := Cents(3000).Add(Cents(500)).Sub(Cents(1000)); got.Cents != 2500 {
		t.Fatalf("expected 2500, got %d", got.Cents)
	}
}

func TestMoneyJSONOutOfRange(t *testing.T) {
	tests := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{`92233720368547758.07`, 1<<63 - 1, true},
		{`92233720368547758.08`, 0, false},
		{`100000000000000000000`, 0, false},
		{`"-100000000000000000000"`, 0, false},
	}
	for _, tt := range tests {
		var m Money
		err := json.Unmarshal([]byte(tt.in), &m)
		if tt.ok {
			if err != nil || m.Cents != tt.cents {
				t.Errorf("%s: got %d, %v", tt.in, m.Cents, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%s: expected ErrInvalidAmount, got %v (cents %d)", tt.in, err, m.Cents)
		}
	}
}
