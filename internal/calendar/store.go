package calendar

import (
	"slices"

	"evcal/internal/model"
)

// Store is the in-memory event collection of one calendar session. It is not
// safe for concurrent use; the owning session serializes access.
type Store struct {
	events []model.Event
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add validates ev and appends it. An invalid event leaves the store
// unchanged and returns a *model.ValidationError.
func (s *Store) Add(ev model.Event) error {
	d := model.Draft{
		Title:       ev.Title,
		Description: ev.Description,
		Date:        ev.Date,
		Time:        ev.Time,
		Color:       ev.Color,
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if ev.ID == "" {
		return model.NewValidationError("id", "required")
	}
	if s.indexOf(ev.ID) >= 0 {
		return model.NewValidationError("id", "already in use")
	}
	s.events = append(s.events, ev)
	return nil
}

// Remove deletes the event with the given id and reports whether one was
// found. Unknown ids are a no-op.
func (s *Store) Remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.events = slices.Delete(s.events, i, i+1)
	return true
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (model.Event, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, false
	}
	return s.events[i], true
}

// QueryByDate returns the events keyed to date in insertion order.
func (s *Store) QueryByDate(date string) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// All returns a copy of every event sorted by (date, time). Ties keep
// insertion order. The store's own order is left untouched.
func (s *Store) All() []model.Event {
	out := slices.Clone(s.events)
	if out == nil {
		out = []model.Event{}
	}
	slices.SortStableFunc(out, model.Compare)
	return out
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	return len(s.events)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.events, func(ev model.Event) bool { return ev.ID == id })
}
