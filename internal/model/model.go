package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"evcal/internal/datekey"
)

// Color is one of the fixed display colors an event may carry.
type Color string

// Palette lists the selectable event colors; the first entry is the default.
var Palette = []Color{
	"#4285F4", // blue
	"#34A853", // green
	"#FBBC04", // yellow
	"#EA4335", // red
	"#8E44AD", // purple
	"#00BCD4", // cyan
	"#FF6B6B", // coral
	"#4ECDC4", // teal
}

// DefaultColor is the palette's first entry.
func DefaultColor() Color { return Palette[0] }

// Valid reports whether c belongs to Palette.
func (c Color) Valid() bool { return slices.Contains(Palette, c) }

// Event is a single dated calendar entry. Values are immutable once created;
// the only way to change an event is to delete it and add a new one.
type Event struct {
	// ID is assigned at creation and unique within a session's store.
	ID string `json:"id" yaml:"id"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Date is the canonical YYYY-MM-DD key of the cell the event belongs to.
	Date string `json:"date" yaml:"date"`

	// Time is a free-form display string such as "09:00 AM" or empty. It is
	// used for ordering and display only.
	Time string `json:"time" yaml:"time"`

	Color Color `json:"color" yaml:"color"`
}

// Draft carries user input for a new event before an ID is assigned.
type Draft struct {
	Title       string
	Description string
	Date        string
	Time        string
	Color       Color
}

// Validate checks the draft without mutating it. A missing title or date
// produces the generic "fill in all required fields" notice.
func (d Draft) Validate() error {
	var errs []FieldError

	if strings.TrimSpace(d.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	switch {
	case d.Date == "":
		errs = append(errs, FieldError{Field: "date", Message: "required"})
	case !datekey.Valid(d.Date):
		errs = append(errs, FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if d.Color != "" && !d.Color.Valid() {
		errs = append(errs, FieldError{Field: "color", Message: "not in palette"})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs, Notice: "Please fill in all required fields"}
	}
	return nil
}

// NewEvent validates d and returns an Event with a fresh time-ordered ID.
// An empty color becomes DefaultColor.
func NewEvent(d Draft) (Event, error) {
	if err := d.Validate(); err != nil {
		return Event{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, fmt.Errorf("model: new event id: %w", err)
	}

	color := d.Color
	if color == "" {
		color = DefaultColor()
	}

	return Event{
		ID:          id.String(),
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		Time:        d.Time,
		Color:       color,
	}, nil
}

// Less orders events by (Date, Time). Both fields compare as plain strings,
// so an event without a time sorts first within its day.
func Less(a, b Event) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.Time < b.Time
}

// Compare is the three-way form of Less for slices.SortStableFunc.
func Compare(a, b Event) int {
	if c := strings.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Time, b.Time)
}
