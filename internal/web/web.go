// Package web serves the calendar UI and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"evcal/internal/auth"
	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/ics"
	appLog "evcal/internal/log"
	"evcal/internal/model"
	"evcal/internal/session"
)

const (
	sessionCookie = "evcal_session"
	stateCookie   = "evcal_oauth_state"
)

// CaptureFunc renders a page to PNG.
type CaptureFunc func(ctx context.Context, opts capture.Options) ([]byte, error)

// Server provides the HTML pages and the JSON API.
type Server struct {
	cfg      *config.Config
	auth     auth.Provider
	sessions *session.Registry
	fetcher  *ics.Fetcher
	capture  CaptureFunc
	pages    *template.Template
	loc      *time.Location
	now      func() time.Time
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithCapture replaces the headless-Chromium renderer.
func WithCapture(fn CaptureFunc) Option {
	return func(s *Server) { s.capture = fn }
}

// WithLocation sets the zone used for ICS import and export.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, provider auth.Provider, sessions *session.Registry, opts ...Option) *Server {
	fetcher := ics.NewFetcher(cfg.Import.FetchTimeout, cfg.Import.MaxBytes,
		ics.WithPrivateHosts(cfg.Import.AllowPrivate),
		ics.WithCacheEntries(cfg.Import.CacheEntries),
	)
	s := &Server{
		cfg:      cfg,
		auth:     provider,
		sessions: sessions,
		fetcher:  fetcher,
		capture:  capture.CalendarPNG,
		pages:    parsePages(),
		loc:      time.Local,
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RequestID,
		AccessLog(appLog.Logger()),
		Recovery,
		Authenticate(s.auth),
	)(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	s.mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	s.mux.HandleFunc("GET /api/auth/google", s.handleGoogleStart)
	s.mux.HandleFunc("GET /api/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("POST /api/auth/logout", s.requireUser(s.handleLogout))
	s.mux.HandleFunc("GET /api/me", s.requireUser(s.handleMe))

	s.mux.HandleFunc("GET /api/calendar", s.withSession(s.handleCalendar))
	s.mux.HandleFunc("POST /api/calendar/navigate", s.withSession(s.handleNavigate))
	s.mux.HandleFunc("POST /api/calendar/mode", s.withSession(s.handleMode))
	s.mux.HandleFunc("POST /api/calendar/select", s.withSession(s.handleSelect))
	s.mux.HandleFunc("POST /api/calendar/hover", s.withSession(s.handleHover))
	s.mux.HandleFunc("POST /api/calendar/goto", s.withSession(s.handleGoTo))

	s.mux.HandleFunc("GET /api/events", s.withSession(s.handleListEvents))
	s.mux.HandleFunc("POST /api/events", s.withSession(s.handleAddEvent))
	s.mux.HandleFunc("GET /api/events/{id}", s.withSession(s.handleGetEvent))
	s.mux.HandleFunc("DELETE /api/events/{id}", s.withSession(s.handleDeleteEvent))
	s.mux.HandleFunc("GET /api/events.ics", s.withSession(s.handleExportICS))
	s.mux.HandleFunc("POST /api/events/import", s.withSession(s.handleImportICS))

	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /auth", s.handleAuthPage)
	s.mux.HandleFunc("GET /preview.png", s.withSession(s.handlePreview))
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type userHandler func(w http.ResponseWriter, r *http.Request, p principal)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// requireUser rejects anonymous requests with 401.
func (s *Server) requireUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromCtx(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r, p)
	}
}

// withSession resolves the caller's calendar session, opening one if the
// previous one was swept.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, p principal) {
		h(w, r, s.sessions.Open(p.User.ID, p.User.Email))
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps calendar errors onto HTTP responses.
func writeFailure(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message(), Fields: ve.Errors})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, res *auth.Result) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
