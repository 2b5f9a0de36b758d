// Package services holds the use cases of billbook on top of the storage
// ports.
//
// This file implements one strategy per budget period for locating the
// period window that contains a given instant.
package services

import (
	"fmt"
	"time"

	"billbook/internal/core"
)

// PeriodWindow locates the window of a recurring period.
type PeriodWindow interface {
	// Window returns the inclusive bounds of the period containing at. Periods
	// repeat from anchor, which must not be after at.
	Window(anchor, at time.Time) (start, end time.Time)
}

// DailyWindow covers the calendar day of at.
type DailyWindow struct{}

func (DailyWindow) Window(_, at time.Time) (time.Time, time.Time) {
	start := core.StartOfDay(at)
	return start, core.EndOfDay(start)
}

// WeeklyWindow covers seven-day blocks counted from the anchor day.
type WeeklyWindow struct{}

func (WeeklyWindow) Window(anchor, at time.Time) (time.Time, time.Time) {
	a := core.StartOfDay(anchor)
	days := int(core.StartOfDay(at).Sub(a).Hours() / 24)
	start := a.AddDate(0, 0, days-days%7)
	return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// MonthlyWindow runs from the anchor's day of month to the day before it in
// the following month. Days missing from short months clamp to the last day.
type MonthlyWindow struct{}

func (MonthlyWindow) Window(anchor, at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	start := monthAnchor(at.Year(), at.Month(), anchor.Day())
	if at.Before(start) {
		prev := time.Date(at.Year(), at.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		start = monthAnchor(prev.Year(), prev.Month(), anchor.Day())
	}
	next := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return start, monthAnchor(next.Year(), next.Month(), anchor.Day()).Add(-time.Nanosecond)
}

// YearlyWindow runs from the anchor's month and day to the day before it the
// following year.
type YearlyWindow struct{}

func (YearlyWindow) Window(anchor, at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	start := monthAnchor(at.Year(), anchor.Month(), anchor.Day())
	if at.Before(start) {
		start = monthAnchor(at.Year()-1, anchor.Month(), anchor.Day())
	}
	return start, monthAnchor(start.Year()+1, anchor.Month(), anchor.Day()).Add(-time.Nanosecond)
}

// monthAnchor returns day of the given month, clamped to the month's last day.
func monthAnchor(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var periodStrategies = map[core.Period]PeriodWindow{
	core.Daily:   DailyWindow{},
	core.Weekly:  WeeklyWindow{},
	core.Monthly: MonthlyWindow{},
	core.Yearly:  YearlyWindow{},
}

// GetPeriodWindow returns the window strategy for p.
func GetPeriodWindow(p core.Period) (PeriodWindow, error) {
	w, ok := periodStrategies[p]
	if !ok {
		return nil, fmt.Errorf("unknown budget period: %s", p)
	}
	return w, nil
}

// BudgetWindow returns the window of b that is current at now, clipped to
// the budget's date range. active is false when now falls outside that range,
// in which case the nearest window is returned.
func BudgetWindow(b core.Budget, now time.Time) (start, end time.Time, active bool, err error) {
	w, err := GetPeriodWindow(b.Period)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	first := core.StartOfDay(b.StartDate)
	last := core.EndOfDay(b.EndDate)

	at := now.UTC()
	active = !at.Before(first) && !at.After(last)
	switch {
	case at.Before(first):
		at = first
	case at.After(last):
		at = last
	}

	start, end = w.Window(first, at)
	if start.Before(first) {
		start = first
	}
	if end.After(last) {
		end = last
	}
	return start, end, active, nil
}
