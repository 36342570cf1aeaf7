// Package datekey converts calendar days to and from their canonical
// YYYY-MM-DD string form. The key is the only link between a stored event
// and a rendered calendar cell.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the canonical key layout.
const Layout = "2006-01-02"

// FromTime returns the key for the calendar day of t as seen on t's own wall
// clock. No timezone conversion takes place.
func FromTime(t time.Time) string {
	return t.Format(Layout)
}

// FromDate returns the key for a (year, month, day) triple after normal
// time.Date overflow handling.
func FromDate(year int, month time.Month, day int) string {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Parse returns noon of the keyed day in loc (time.Local if nil). Midnight
// is skipped by some DST transitions; noon exists in every zone.
// It rejects anything that does not round-trip to the same key, so
// "2024-2-5" and "2024-02-30" both fail.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse(Layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("datekey: parse %q: %w", key, err)
	}
	if FromTime(t) != key {
		return time.Time{}, fmt.Errorf("datekey: %q is not canonical", key)
	}
	return Noon(t.Year(), t.Month(), t.Day(), loc), nil
}

// Valid reports whether key is a canonical YYYY-MM-DD string.
func Valid(key string) bool {
	_, err := Parse(key, time.UTC)
	return err == nil
}

// SameDay reports whether a and b fall on the same calendar day, each on
// its own wall clock.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Noon returns 12:00 of the given day in loc, after time.Date overflow
// handling. Grids anchor days at noon.
func Noon(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, loc)
}
