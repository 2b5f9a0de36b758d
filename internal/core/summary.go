package core

import (
	"strings"
	"time"
)

// Totals are the income and expense sums of a filtered bill set.
type Totals struct {
	Income  Money
	Expense Money
}

// Add accumulates b into t.
func (t *Totals) Add(b Bill) {
	switch b.Type {
	case Income:
		t.Income = t.Income.Add(b.Amount)
	case Expense:
		t.Expense = t.Expense.Add(b.Amount)
	}
}

type Summary struct {
	Income  Money
	Expense Money
	Balance Money
}

func SummaryOf(t Totals) Summary {
	return Summary{Income: t.Income, Expense: t.Expense, Balance: t.Income.Sub(t.Expense)}
}

// BillPage is one page of a filtered bill listing.
type BillPage struct {
	Bills  []Bill
	Page   PageRequest
	Total  int
	Totals Totals
}

// BudgetStatus reports spending against a budget in its current window.
type BudgetStatus struct {
	Budget      Budget
	WindowStart time.Time
	WindowEnd   time.Time
	Active      bool
	Spent       Money
	Remaining   Money
	Percentage  float64
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts an RFC 3339 timestamp or a plain date. Plain dates and
// timestamps without a zone are read as UTC. dayOnly reports whether s had
// no time part.
func ParseDate(s string) (t time.Time, dayOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, ErrMissingDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, ErrInvalidDate
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
