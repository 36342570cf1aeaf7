package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"evcal/internal/calendar"
	"evcal/internal/datekey"
	appLog "evcal/internal/log"
	"evcal/internal/model"
)

// Properties written on export so an exported file imports back unchanged.
const (
	propColor = ical.ComponentProperty("X-EVCAL-COLOR")
	propTime  = ical.ComponentProperty("X-EVCAL-TIME")
)

// ImportResult is the outcome of reading one ICS payload.
type ImportResult struct {
	Drafts  []model.Draft
	Skipped int
}

// ParseICS turns every VEVENT of body into a draft event.
//
//   - All-day events (VALUE=DATE or no time part) get an empty Time.
//   - Timed events are placed on their start day in loc and get an
//     "hh:mm AM/PM" Time.
//   - RRULEs are ignored; only the first instance is imported.
//
// VEVENTs without a usable start or summary are skipped and counted.
func ParseICS(body []byte, loc *time.Location) (ImportResult, error) {
	if len(body) == 0 {
		return ImportResult{}, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return ImportResult{}, fmt.Errorf("ics: parse calendar: %w", err)
	}

	res := ImportResult{Drafts: make([]model.Draft, 0)}
	for _, ve := range cal.Events() {
		d, perr := parseVEvent(ve, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "reason", perr.Error())
			res.Skipped++
			continue
		}
		res.Drafts = append(res.Drafts, d)
	}

	appLog.Info("ics parse completed", "event_count", len(res.Drafts), "skipped", res.Skipped)
	return res, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Draft, error) {
	var d model.Draft

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		d.Title = strings.TrimSpace(p.Value)
	}
	if d.Title == "" {
		return d, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		d.Description = p.Value
	}
	if p := ve.GetProperty(propColor); p != nil {
		if c := model.Color(strings.ToUpper(p.Value)); c.Valid() {
			d.Color = c
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return d, errors.New("missing DTSTART")
	}

	if isAllDay(dtStart) {
		day, err := parseICSTime(dtStart.Value[:min(8, len(dtStart.Value))], loc)
		if err != nil {
			return d, fmt.Errorf("DTSTART: %w", err)
		}
		d.Date = datekey.FromTime(day)
	} else {
		var start time.Time
		var err error
		if _, zoned := dtStart.ICalParameters["TZID"]; zoned {
			start, err = ve.GetStartAt()
		} else {
			// UTC or floating; floating values belong to loc.
			start, err = parseICSTime(dtStart.Value, loc)
		}
		if err != nil {
			return d, fmt.Errorf("DTSTART: %w", err)
		}
		start = start.In(loc)
		d.Date = datekey.FromTime(start)
		d.Time = calendar.ClockTime(start)
	}

	// An exported display time wins over the computed one.
	if p := ve.GetProperty(propTime); p != nil {
		d.Time = p.Value
	}

	return d, d.Validate()
}

// isAllDay reports whether DTSTART is a DATE rather than a DATE-TIME.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic ICS date and date-time forms. Floating
// values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Floating date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, loc)
}
