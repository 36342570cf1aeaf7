package calendar

import (
	"time"

	"evcal/internal/datekey"
	"evcal/internal/model"
)

// Board is the calendar state of one session: reference date, view mode,
// selected and hovered cells, and the event store. Every method is a plain
// synchronous state transition; View derives what to render.
type Board struct {
	store    *Store
	ref      time.Time
	mode     ViewMode
	selected string
	hovered  string
	now      func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithReference sets the initial reference date instead of today.
func WithReference(ref time.Time) Option {
	return func(b *Board) { b.ref = ref }
}

// NewBoard returns a month-mode board positioned on today with an empty store.
func NewBoard(opts ...Option) *Board {
	b := &Board{mode: ModeMonth, now: time.Now, store: NewStore()}
	for _, opt := range opts {
		opt(b)
	}
	if b.ref.IsZero() {
		b.ref = b.now()
	}
	return b
}

func (b *Board) Store() *Store        { return b.store }
func (b *Board) Reference() time.Time { return b.ref }
func (b *Board) Mode() ViewMode       { return b.mode }
func (b *Board) Selected() string     { return b.selected }

// Navigate moves the reference date one month or one week.
func (b *Board) Navigate(dir Direction) {
	b.ref = Shift(b.ref, b.mode, dir)
}

// Today moves the reference date back to the current day.
func (b *Board) Today() {
	b.ref = b.now()
}

// GoTo jumps to the day identified by key.
func (b *Board) GoTo(key string) error {
	t, err := datekey.Parse(key, b.ref.Location())
	if err != nil {
		return model.NewValidationError("date", "must be YYYY-MM-DD")
	}
	b.ref = t
	return nil
}

// SetViewMode switches between month and week grids; the reference date is
// kept so the new grid still contains it.
func (b *Board) SetViewMode(m ViewMode) error {
	if !m.Valid() {
		return model.NewValidationError("mode", "must be month or week")
	}
	b.mode = m
	return nil
}

// SelectCell marks the cell whose date an added event will receive.
func (b *Board) SelectCell(key string) error {
	if !datekey.Valid(key) {
		return model.NewValidationError("date", "must be YYYY-MM-DD")
	}
	b.selected = key
	return nil
}

// Hover sets the transient hover highlight; an empty key clears it.
func (b *Board) Hover(key string) error {
	if key != "" && !datekey.Valid(key) {
		return model.NewValidationError("date", "must be YYYY-MM-DD")
	}
	b.hovered = key
	return nil
}

// AddEvent creates an event on the selected cell. The draft's own Date is
// ignored. Without a selection or title the store is left unchanged and a
// validation error is returned.
func (b *Board) AddEvent(d model.Draft) (model.Event, error) {
	return b.addOn(b.selected, d)
}

// AddEventOn selects the cell for key and creates the event there in one
// step. A rejected draft leaves both the store and the selection unchanged.
func (b *Board) AddEventOn(key string, d model.Draft) (model.Event, error) {
	if !datekey.Valid(key) {
		return model.Event{}, model.NewValidationError("date", "must be YYYY-MM-DD")
	}
	ev, err := b.addOn(key, d)
	if err != nil {
		return model.Event{}, err
	}
	b.selected = key
	return ev, nil
}

func (b *Board) addOn(key string, d model.Draft) (model.Event, error) {
	d.Date = key
	ev, err := model.NewEvent(d)
	if err != nil {
		return model.Event{}, err
	}
	if err := b.store.Add(ev); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Import adds drafts that already carry their own date, such as events read
// from an ICS file. The selection is left alone. Drafts that fail
// validation are skipped and counted.
func (b *Board) Import(drafts []model.Draft) (added []model.Event, skipped int) {
	added = make([]model.Event, 0, len(drafts))
	for _, d := range drafts {
		ev, err := model.NewEvent(d)
		if err == nil {
			err = b.store.Add(ev)
		}
		if err != nil {
			skipped++
			continue
		}
		added = append(added, ev)
	}
	return added, skipped
}

// DeleteEvent removes the event with id; unknown ids are ignored.
func (b *Board) DeleteEvent(id string) bool {
	return b.store.Remove(id)
}

// CellView is a rendered grid slot.
type CellView struct {
	Key      string        `json:"key,omitempty"`
	Day      int           `json:"day,omitempty"`
	Blank    bool          `json:"blank"`
	Today    bool          `json:"today"`
	Hovered  bool          `json:"hovered"`
	Selected bool          `json:"selected"`
	Events   []model.Event `json:"events"`
}

// Visible splits the cell's events into the first limit entries and the
// count of the rest, for "+N more" labels. limit <= 0 shows everything.
func (c CellView) Visible(limit int) ([]model.Event, int) {
	if limit <= 0 || len(c.Events) <= limit {
		return c.Events, 0
	}
	return c.Events[:limit], len(c.Events) - limit
}

// View is everything the presentation layer needs for one render.
type View struct {
	Mode      ViewMode      `json:"mode"`
	Label     string        `json:"label"`
	Reference string        `json:"reference"`
	Today     string        `json:"today"`
	Selected  string        `json:"selected,omitempty"`
	DayNames  []string      `json:"day_names"`
	Cells     []CellView    `json:"cells"`
	Events    []model.Event `json:"events"`
}

// View computes the grid for the current state. The wall clock is read once
// per call so the today highlight follows midnight.
func (b *Board) View() View {
	now := b.now()
	grid := Grid(b.ref, b.mode)

	cells := make([]CellView, 0, len(grid))
	for _, c := range grid {
		if c.Blank {
			cells = append(cells, CellView{Blank: true, Events: []model.Event{}})
			continue
		}
		cells = append(cells, CellView{
			Key:      c.Key,
			Day:      c.Day(),
			Today:    datekey.SameDay(c.Date, now),
			Hovered:  c.Key == b.hovered,
			Selected: c.Key == b.selected,
			Events:   b.store.QueryByDate(c.Key),
		})
	}

	return View{
		Mode:      b.mode,
		Label:     Label(b.ref, b.mode),
		Reference: datekey.FromTime(b.ref),
		Today:     datekey.FromTime(now),
		Selected:  b.selected,
		DayNames:  DayNames,
		Cells:     cells,
		Events:    b.store.All(),
	}
}
