package calendar

import (
	"fmt"
	"time"

	"evcal/internal/model"
)

// timeLayout matches the picker output, e.g. "09:05 PM".
const timeLayout = "03:04 PM"

// FormatTime renders a 12-hour picker selection as "hh:mm AM/PM".
// hour12 is 1..12 and minute 0..59.
func FormatTime(hour12, minute int, pm bool) (string, error) {
	if hour12 < 1 || hour12 > 12 {
		return "", model.NewValidationError("hour", "must be between 1 and 12")
	}
	if minute < 0 || minute > 59 {
		return "", model.NewValidationError("minute", "must be between 0 and 59")
	}
	h := hour12 % 12
	if pm {
		h += 12
	}
	return time.Date(2000, 1, 1, h, minute, 0, 0, time.UTC).Format(timeLayout), nil
}

// ClockTime formats t's wall clock as "hh:mm AM/PM".
func ClockTime(t time.Time) string {
	return t.Format(timeLayout)
}

// ParseTime reads an "hh:mm AM/PM" string into a 24-hour hour and minute.
func ParseTime(s string) (hour, minute int, err error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("calendar: parse time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
