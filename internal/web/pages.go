package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"evcal/internal/calendar"
	"evcal/internal/capture"
	appLog "evcal/internal/log"
	"evcal/internal/model"
	"evcal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Events a grid cell lists before "+N more".
const (
	cellEventLimit        = 3
	compactCellEventLimit = 2
)

func parsePages() *template.Template {
	funcs := template.FuncMap{
		"shown": func(c calendar.CellView, limit int) []model.Event {
			events, _ := c.Visible(limit)
			return events
		},
		"more": func(c calendar.CellView, limit int) int {
			_, n := c.Visible(limit)
			return n
		},
	}
	return template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

type calendarPage struct {
	Email   string
	Notice  string
	Compact bool
	Limit   int
	Palette []model.Color
	View    calendar.View
}

type authPage struct {
	Error  string
	Google bool
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromCtx(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth", http.StatusFound)
		return
	}
	q := r.URL.Query()
	page := calendarPage{
		Email:   p.User.Email,
		Notice:  q.Get("notice"),
		Limit:   cellEventLimit,
		Palette: model.Palette,
		View:    s.sessions.Open(p.User.ID, p.User.Email).View(),
	}
	if q.Get("layout") == "compact" {
		page.Compact = true
		page.Limit = compactCellEventLimit
	}
	s.render(w, "calendar.html", page)
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := principalFromCtx(r.Context()); ok {
		http.Redirect(w, r, "/calendar", http.StatusFound)
		return
	}
	s.render(w, "auth.html", authPage{
		Error:  r.URL.Query().Get("error"),
		Google: s.cfg.Auth.Google.Enabled(),
	})
}

// handlePreview renders the caller's calendar page to PNG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !s.cfg.Preview.Enabled {
		writeError(w, http.StatusNotFound, "preview is disabled")
		return
	}
	p, _ := principalFromCtx(r.Context())

	png, err := s.capture(r.Context(), capture.Options{
		URL:     s.cfg.PreviewBaseURL() + "/calendar",
		Headers: map[string]string{"Authorization": "Bearer " + p.Token},
		Width:   s.cfg.Preview.Width,
		Height:  s.cfg.Preview.Height,
		Timeout: s.cfg.Preview.Timeout,
	})
	if err != nil {
		appLog.Error("preview capture failed", err, "user_id", sess.UserID)
		writeError(w, http.StatusBadGateway, "preview capture failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
