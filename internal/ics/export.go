package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"evcal/internal/calendar"
	"evcal/internal/datekey"
	"evcal/internal/model"
)

// ProductID identifies files written by Export.
const ProductID = "-//evcal//Event Calendar//EN"

// Export renders events as a VCALENDAR. Events whose Time reads as
// "hh:mm AM/PM" become timed VEVENTs in loc; the rest are all-day. The
// display time and color travel in X- properties so ParseICS restores them.
func Export(events []model.Event, loc *time.Location, now time.Time) (string, error) {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		day, err := datekey.Parse(ev.Date, loc)
		if err != nil {
			return "", err
		}

		ve := cal.AddEvent(ev.ID + "@evcal")
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		if h, m, perr := calendar.ParseTime(ev.Time); ev.Time != "" && perr == nil {
			ve.SetStartAt(time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc))
		} else {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		}

		if ev.Time != "" {
			ve.SetProperty(propTime, ev.Time)
		}
		if ev.Color != "" {
			ve.SetProperty(propColor, string(ev.Color))
		}
	}

	return cal.Serialize(), nil
}
