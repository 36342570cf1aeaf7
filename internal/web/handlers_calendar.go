package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"evcal/internal/calendar"
	"evcal/internal/datekey"
	"evcal/internal/ics"
	appLog "evcal/internal/log"
	"evcal/internal/model"
	"evcal/internal/session"
)

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.View())
}

// mutate applies fn to the session board and answers with the new view.
func mutate(w http.ResponseWriter, sess *session.Session, fn func(b *calendar.Board) error) {
	var view calendar.View
	err := sess.Do(func(b *calendar.Board) error {
		if err := fn(b); err != nil {
			return err
		}
		view = b.View()
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in struct {
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	mutate(w, sess, func(b *calendar.Board) error {
		switch in.Direction {
		case "previous":
			b.Navigate(calendar.Previous)
		case "next":
			b.Navigate(calendar.Next)
		case "today":
			b.Today()
		default:
			return model.NewValidationError("direction", "must be previous, next or today")
		}
		return nil
	})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in struct {
		Mode calendar.ViewMode `json:"mode"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	mutate(w, sess, func(b *calendar.Board) error { return b.SetViewMode(in.Mode) })
}

type dateInput struct {
	Date string `json:"date"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in dateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	mutate(w, sess, func(b *calendar.Board) error { return b.SelectCell(in.Date) })
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in dateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	mutate(w, sess, func(b *calendar.Board) error { return b.Hover(in.Date) })
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in dateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	mutate(w, sess, func(b *calendar.Board) error { return b.GoTo(in.Date) })
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	date := r.URL.Query().Get("date")
	if date != "" && !datekey.Valid(date) {
		writeFailure(w, model.NewValidationError("date", "must be YYYY-MM-DD"))
		return
	}

	var events []model.Event
	_ = sess.Do(func(b *calendar.Board) error {
		if date == "" {
			events = b.Store().All()
		} else {
			events = b.Store().QueryByDate(date)
		}
		return nil
	})
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

type addEventInput struct {
	Date        string      `json:"date"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Time        string      `json:"time"`
	Color       model.Color `json:"color"`
}

type eventResponse struct {
	Message string      `json:"message"`
	Event   model.Event `json:"event"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var in addEventInput
	if !decodeJSON(w, r, &in) {
		return
	}

	var ev model.Event
	draft := model.Draft{
		Title:       in.Title,
		Description: in.Description,
		Time:        in.Time,
		Color:       in.Color,
	}
	err := sess.Do(func(b *calendar.Board) error {
		var err error
		if in.Date != "" {
			ev, err = b.AddEventOn(in.Date, draft)
		} else {
			ev, err = b.AddEvent(draft)
		}
		return err
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	appLog.Debug("event added", "id", ev.ID, "date", ev.Date, "user_id", sess.UserID)
	writeJSON(w, http.StatusCreated, eventResponse{Message: "Event added successfully!", Event: ev})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := r.PathValue("id")
	var ev model.Event
	err := sess.Do(func(b *calendar.Board) error {
		var ok bool
		if ev, ok = b.Store().Get(id); !ok {
			return fmt.Errorf("event %s: %w", id, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Event model.Event `json:"event"`
	}{ev})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := r.PathValue("id")
	var removed bool
	_ = sess.Do(func(b *calendar.Board) error {
		removed = b.DeleteEvent(id)
		return nil
	})
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		Deleted bool   `json:"deleted"`
	}{"Event deleted successfully!", removed})
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	var events []model.Event
	_ = sess.Do(func(b *calendar.Board) error {
		events = b.Store().All()
		return nil
	})

	body, err := ics.Export(events, s.loc, s.now())
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="evcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// handleImportICS accepts either a text/calendar body or {"url": "..."}.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	body, err := s.importBody(w, r)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe), errors.Is(err, ics.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "calendar file is too large")
		case errors.Is(err, model.ErrValidation):
			writeFailure(w, err)
		case errors.Is(err, ics.ErrUnsupportedURL):
			writeError(w, http.StatusBadRequest, "url must be http or https")
		case errors.Is(err, ics.ErrBlockedHost):
			writeError(w, http.StatusBadRequest, "url host is not allowed")
		default:
			appLog.Error("ics import fetch failed", err, "user_id", sess.UserID)
			writeError(w, http.StatusBadGateway, "could not fetch calendar")
		}
		return
	}

	parsed, err := ics.ParseICS(body, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "not a valid calendar file")
		return
	}

	var added []model.Event
	skipped := parsed.Skipped
	_ = sess.Do(func(b *calendar.Board) error {
		var n int
		added, n = b.Import(parsed.Drafts)
		skipped += n
		return nil
	})

	writeJSON(w, http.StatusOK, importResponse{
		Message:  fmt.Sprintf("Imported %d events", len(added)),
		Imported: len(added),
		Skipped:  skipped,
	})
}

func (s *Server) importBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var in struct {
			URL string `json:"url"`
		}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		if err := dec.Decode(&in); err != nil {
			return nil, model.NewValidationError("url", "invalid JSON body")
		}
		if strings.TrimSpace(in.URL) == "" {
			return nil, model.NewValidationError("url", "required")
		}
		res, err := s.fetcher.Fetch(r.Context(), in.URL)
		if err != nil {
			return nil, err
		}
		return res.Body, nil
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBytes)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
