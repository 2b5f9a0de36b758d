package services

import (
	"testing"
	"time"

	"billbook/internal/core"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func endOf(y int, m time.Month, d int) time.Time {
	return core.EndOfDay(date(y, m, d))
}

func TestPeriodWindows(t *testing.T) {
	tests := []struct {
		name      string
		window    PeriodWindow
		anchor    time.Time
		at        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "daily covers the calendar day",
			window:    DailyWindow{},
			anchor:    date(2024, 1, 1),
			at:        at(2024, 1, 15, 18),
			wantStart: date(2024, 1, 15),
			wantEnd:   endOf(2024, 1, 15),
		},
		{
			name:      "weekly first block",
			window:    WeeklyWindow{},
			anchor:    date(2024, 1, 3),
			at:        at(2024, 1, 9, 12),
			wantStart: date(2024, 1, 3),
			wantEnd:   endOf(2024, 1, 9),
		},
		{
			name:      "weekly third block",
			window:    WeeklyWindow{},
			anchor:    date(2024, 1, 3),
			at:        at(2024, 1, 17, 0),
			wantStart: date(2024, 1, 17),
			wantEnd:   endOf(2024, 1, 23),
		},
		{
			name:      "monthly after anchor day",
			window:    MonthlyWindow{},
			anchor:    date(2024, 1, 10),
			at:        at(2024, 3, 15, 9),
			wantStart: date(2024, 3, 10),
			wantEnd:   endOf(2024, 4, 9),
		},
		{
			name:      "monthly before anchor day",
			window:    MonthlyWindow{},
			anchor:    date(2024, 1, 10),
			at:        at(2024, 3, 5, 9),
			wantStart: date(2024, 2, 10),
			wantEnd:   endOf(2024, 3, 9),
		},
		{
			name:      "monthly anchor clamps in february",
			window:    MonthlyWindow{},
			anchor:    date(2024, 1, 31),
			at:        at(2024, 2, 29, 9),
			wantStart: date(2024, 2, 29),
			wantEnd:   endOf(2024, 3, 30),
		},
		{
			name:      "monthly across year end",
			window:    MonthlyWindow{},
			anchor:    date(2024, 1, 15),
			at:        at(2025, 1, 2, 9),
			wantStart: date(2024, 12, 15),
			wantEnd:   endOf(2025, 1, 14),
		},
		{
			name:      "yearly after anniversary",
			window:    YearlyWindow{},
			anchor:    date(2023, 4, 1),
			at:        at(2024, 6, 1, 0),
			wantStart: date(2024, 4, 1),
			wantEnd:   endOf(2025, 3, 31),
		},
		{
			name:      "yearly before anniversary",
			window:    YearlyWindow{},
			anchor:    date(2023, 4, 1),
			at:        at(2024, 2, 1, 0),
			wantStart: date(2023, 4, 1),
			wantEnd:   endOf(2024, 3, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.window.Window(tt.anchor, tt.at)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("Window() = [%v, %v], want [%v, %v]", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestGetPeriodWindow(t *testing.T) {
	for _, p := range []core.Period{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetPeriodWindow(p); err != nil {
			t.Errorf("GetPeriodWindow(%s) error = %v", p, err)
		}
	}
	if _, err := GetPeriodWindow("hourly"); err == nil {
		t.Error("GetPeriodWindow(hourly) should fail")
	}
}

func TestBudgetWindow(t *testing.T) {
	b := core.Budget{Period: core.Monthly, StartDate: date(2024, 1, 10), EndDate: date(2024, 3, 20)}

	tests := []struct {
		name       string
		now        time.Time
		wantStart  time.Time
		wantEnd    time.Time
		wantActive bool
	}{
		{"inside", at(2024, 2, 1, 0), date(2024, 1, 10), endOf(2024, 2, 9), true},
		{"last window clipped to end date", at(2024, 3, 15, 0), date(2024, 3, 10), endOf(2024, 3, 20), true},
		{"before start", at(2023, 12, 1, 0), date(2024, 1, 10), endOf(2024, 2, 9), false},
		{"after end", at(2024, 5, 1, 0), date(2024, 3, 10), endOf(2024, 3, 20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, active, err := BudgetWindow(b, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) || active != tt.wantActive {
				t.Errorf("BudgetWindow() = [%v, %v] active=%v, want [%v, %v] active=%v",
					start, end, active, tt.wantStart, tt.wantEnd, tt.wantActive)
			}
		})
	}
}
