package core

import (
	"errors"
	"fmt"
	"time"
)

// Period names accepted by the analytics surface.
const (
	PeriodMonth     Period = "month"
	PeriodLastMonth Period = "lastMonth"
	PeriodYear      Period = "year"
	PeriodAll       Period = "all"
	PeriodCustom    Period = "custom"
)

var ErrInvalidPeriod = errors.New("invalid period")

type Period string

// DateRange is an inclusive calendar range. A zero bound is unbounded.
type DateRange struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// ParsePeriod validates a period name; empty defaults to month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodMonth, nil
	case PeriodMonth, PeriodLastMonth, PeriodYear, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Range resolves a named period against now.
func (p Period) Range(now time.Time) (DateRange, error) {
	today := DateOf(now)
	first := NewDate(today.Year(), int(today.Month()), 1)
	switch p {
	case PeriodMonth:
		return DateRange{Start: first, End: today}, nil
	case PeriodLastMonth:
		start := NewDate(today.Year(), int(today.Month())-1, 1)
		return DateRange{Start: start, End: Date{Time: first.AddDate(0, 0, -1)}}, nil
	case PeriodYear:
		return DateRange{Start: NewDate(today.Year(), 1, 1), End: today}, nil
	case PeriodAll:
		return DateRange{}, nil
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}

func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidPeriod, r.End, r.Start)
	}
	return nil
}

// Contains reports whether d falls inside the range, bounds inclusive.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (r DateRange) Unbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// String renders the range as "start..end" with empty unbounded sides.
func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// MonthWindow returns the n calendar months ending at now's month, oldest first,
// together with the date range covering them.
func MonthWindow(now time.Time, n int) ([]string, DateRange) {
	today := DateOf(now)
	months := make([]string, n)
	for i := 0; i < n; i++ {
		m := NewDate(today.Year(), int(today.Month())-(n-1-i), 1)
		months[i] = m.MonthKey()
	}
	start := NewDate(today.Year(), int(today.Month())-(n-1), 1)
	end := Date{Time: NewDate(today.Year(), int(today.Month())+1, 1).AddDate(0, 0, -1)}
	return months, DateRange{Start: start, End: end}
}
