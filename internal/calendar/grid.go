// Package calendar holds the calendar core: grid generation for month and
// week views, the per-session event store, and the Board that ties them to
// user actions.
package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"evcal/internal/datekey"
	appLog "evcal/internal/log"
)

// ViewMode selects between the month and week grid.
type ViewMode string

const (
	ModeMonth ViewMode = "month"
	ModeWeek  ViewMode = "week"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ModeMonth || m == ModeWeek
}

// Direction is a navigation step relative to the current reference date.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// DayNames are the column headers, Sunday first.
var DayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Cell is one slot of a grid. Date is noon of the cell's day in the
// reference location. Blank cells only pad the first week of a month view
// and carry no date.
type Cell struct {
	Blank bool
	Date  time.Time
	Key   string
}

// Day returns the day of month, or 0 for a blank cell.
func (c Cell) Day() int {
	if c.Blank {
		return 0
	}
	return c.Date.Day()
}

// MonthGrid returns weekday(first of month) blank cells followed by one cell
// per day of ref's month. No trailing blanks are emitted.
func MonthGrid(ref time.Time) []Cell {
	first := datekey.Noon(ref.Year(), ref.Month(), 1, ref.Location())
	blanks := int(first.Weekday())
	n := DaysInMonth(ref)

	cells := make([]Cell, 0, blanks+n)
	for i := 0; i < blanks; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for _, d := range consecutiveDays(first, n) {
		cells = append(cells, Cell{Date: d, Key: datekey.FromTime(d)})
	}
	return cells
}

// WeekGrid returns the seven days of the Sunday-first week containing ref.
func WeekGrid(ref time.Time) []Cell {
	start := WeekStart(ref)
	cells := make([]Cell, 0, 7)
	for _, d := range consecutiveDays(start, 7) {
		cells = append(cells, Cell{Date: d, Key: datekey.FromTime(d)})
	}
	return cells
}

// Grid dispatches to MonthGrid or WeekGrid.
func Grid(ref time.Time, mode ViewMode) []Cell {
	if mode == ModeWeek {
		return WeekGrid(ref)
	}
	return MonthGrid(ref)
}

// WeekStart returns noon of the Sunday on or before ref.
func WeekStart(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return datekey.Noon(y, m, d-int(ref.Weekday()), ref.Location())
}

// DaysInMonth returns the number of days in ref's month.
func DaysInMonth(ref time.Time) int {
	return time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Shift moves ref one step in dir. Month mode lands on the first day of the
// adjacent month so a 31st never rolls over into the month after; week mode
// moves exactly seven days.
func Shift(ref time.Time, mode ViewMode, dir Direction) time.Time {
	y, m, d := ref.Date()
	if mode == ModeWeek {
		return datekey.Noon(y, m, d+7*int(dir), ref.Location())
	}
	return datekey.Noon(y, m+time.Month(dir), 1, ref.Location())
}

// Label is the heading shown above the grid, e.g. "March 2024" or
// "Week of Mar 3 - Mar 9, 2024".
func Label(ref time.Time, mode ViewMode) string {
	if mode == ModeWeek {
		start := WeekStart(ref)
		end := start.AddDate(0, 0, 6)
		return fmt.Sprintf("Week of %s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	}
	return ref.Format("January 2006")
}

// consecutiveDays returns n calendar days starting at start's day, each as
// noon in start's location. Days are enumerated in UTC, which has no DST
// gaps, and only then placed in the target zone.
func consecutiveDays(start time.Time, n int) []time.Time {
	loc := start.Location()
	y, m, d := start.Date()

	out := make([]time.Time, 0, n)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Count:   n,
	})
	if err != nil {
		appLog.Error("calendar: daily rule rejected; stepping manually", err, "start", datekey.FromTime(start), "count", n)
		for i := 0; i < n; i++ {
			out = append(out, datekey.Noon(y, m, d+i, loc))
		}
		return out
	}
	for _, day := range rule.All() {
		out = append(out, datekey.Noon(day.Year(), day.Month(), day.Day(), loc))
	}
	return out
}
