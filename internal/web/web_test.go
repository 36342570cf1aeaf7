package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"evcal/internal/auth"
	"evcal/internal/calendar"
	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/model"
	"evcal/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	cfg      *config.Config
	server   *Server
	handler  http.Handler
	sessions *session.Registry
}

func testConfig() *config.Config {
	return &config.Config{
		Listen: "127.0.0.1:8080",
		Auth: config.AuthConfig{
			JWTSecret:         testSecret,
			JWTIssuer:         "evcal",
			TokenTTL:          time.Hour,
			MinPasswordLength: 6,
			BcryptCost:        bcrypt.MinCost,
		},
		Session: config.SessionConfig{IdleTTL: time.Hour, Sweep: "@every 5m"},
		Preview: config.PreviewConfig{Width: 800, Height: 600, Timeout: 5 * time.Second},
		Import:  config.ImportConfig{MaxBytes: 1 << 20, FetchTimeout: 5 * time.Second},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	dir := auth.NewDirectory(cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	svc := auth.NewService(dir, tokens, nil, cfg.Auth.MinPasswordLength)

	clock := func() time.Time { return testNow }
	reg := session.NewRegistry(cfg.Session.IdleTTL,
		session.WithBoardOptions(calendar.WithClock(clock), calendar.WithReference(testNow)),
	)

	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	srv := NewServer(cfg, svc, reg, opts...)
	srv.now = clock
	return &testEnv{cfg: cfg, server: srv, handler: srv.Handler(), sessions: reg}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/signup", "", auth.Credentials{Email: email, Password: "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSignUpAndSignIn(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", auth.Credentials{Email: "ann@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode[authResponse](t, rec)
	assert.Equal(t, "Account created successfully!", out.Message)
	assert.Equal(t, "ann@example.com", out.User.Email)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, out.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = env.do(t, http.MethodPost, "/api/auth/signup", "", auth.Credentials{Email: "ann@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already in use", decode[errorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/auth/signin", "", auth.Credentials{Email: "ann@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[errorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/auth/signin", "", auth.Credentials{Email: "ann@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[authResponse](t, rec)
	assert.Equal(t, "Welcome back!", out.Message)

	rec = env.do(t, http.MethodGet, "/api/me", out.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ann@example.com")
}

func TestSignUp_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name  string
		creds auth.Credentials
		want  string
	}{
		{"empty", auth.Credentials{}, "Please fill in all fields"},
		{"missing password", auth.Credentials{Email: "a@example.com"}, "Please fill in all fields"},
		{"short password", auth.Credentials{Email: "a@example.com", Password: "123"}, "Password must be at least 6 characters"},
		{"bad email", auth.Credentials{Email: "nope", Password: "hunter22"}, "Please enter a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.creds)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[errorResponse](t, rec).Error)
		})
	}

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@example.com", "extra": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnonymousRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/calendar", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/calendar", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/calendar", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/calendar", rec.Header().Get("Location"))
}

func TestStaleCookieIsCleared(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "expired"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestCookieAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCalendarNavigation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	rec := env.do(t, http.MethodGet, "/api/calendar", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[calendar.View](t, rec)
	assert.Equal(t, "March 2024", view.Label)
	assert.Equal(t, "2024-03-05", view.Today)
	assert.Len(t, view.Cells, 5+31)

	rec = env.do(t, http.MethodPost, "/api/calendar/navigate", token, map[string]string{"direction": "next"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "April 2024", decode[calendar.View](t, rec).Label)

	rec = env.do(t, http.MethodPost, "/api/calendar/navigate", token, map[string]string{"direction": "today"})
	assert.Equal(t, "March 2024", decode[calendar.View](t, rec).Label)

	rec = env.do(t, http.MethodPost, "/api/calendar/navigate", token, map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/calendar/mode", token, map[string]string{"mode": "week"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[calendar.View](t, rec)
	assert.Equal(t, calendar.ModeWeek, view.Mode)
	assert.Len(t, view.Cells, 7)

	rec = env.do(t, http.MethodPost, "/api/calendar/mode", token, map[string]string{"mode": "year"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/calendar/select", token, map[string]string{"date": "2024-03-07"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-07", decode[calendar.View](t, rec).Selected)

	rec = env.do(t, http.MethodPost, "/api/calendar/goto", token, map[string]string{"date": "2025-07-04"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Week of Jun 29 - Jul 5, 2025", decode[calendar.View](t, rec).Label)

	rec = env.do(t, http.MethodPost, "/api/calendar/goto", token, map[string]string{"date": "July 4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/calendar/hover", token, map[string]string{"date": "03/07/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddEvent_RejectedDraftKeepsSelection(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/calendar/select", token, map[string]string{"date": "2024-03-07"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/events", token, addEventInput{Date: "2024-03-05"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/calendar", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-07", decode[calendar.View](t, rec).Selected)

	rec = env.do(t, http.MethodPost, "/api/events", token, addEventInput{Date: "2024-03-05", Title: "Standup"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/calendar", token, nil)
	assert.Equal(t, "2024-03-05", decode[calendar.View](t, rec).Selected)
}

func TestEventLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/events", token, addEventInput{Title: "no date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/events", token, addEventInput{Date: "2024-03-05", Time: "09:00 AM"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	failure := decode[errorResponse](t, rec)
	require.NotEmpty(t, failure.Fields)
	assert.Equal(t, "title", failure.Fields[0].Field)

	rec = env.do(t, http.MethodPost, "/api/events", token, addEventInput{
		Date: "2024-03-05", Title: "Standup", Time: "09:00 AM", Color: model.Palette[1],
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[eventResponse](t, rec)
	assert.Equal(t, "Event added successfully!", created.Message)
	assert.Equal(t, "2024-03-05", created.Event.Date)
	assert.Equal(t, model.Palette[1], created.Event.Color)
	assert.NotEmpty(t, created.Event.ID)

	rec = env.do(t, http.MethodGet, "/api/events?date=2024-03-05", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Event{created.Event}, decode[eventsResponse](t, rec).Events)

	rec = env.do(t, http.MethodGet, "/api/events/"+created.Event.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Standup"`)

	rec = env.do(t, http.MethodGet, "/api/events/nonexistent-id", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/events?date=2024-03-06", token, nil)
	assert.Empty(t, decode[eventsResponse](t, rec).Events)

	rec = env.do(t, http.MethodGet, "/api/events?date=tomorrow", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another user never sees ann's events.
	other := env.signUp(t, "bob@example.com")
	rec = env.do(t, http.MethodGet, "/api/events", other, nil)
	assert.Empty(t, decode[eventsResponse](t, rec).Events)

	rec = env.do(t, http.MethodDelete, "/api/events/"+created.Event.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event deleted successfully!","deleted":true}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/events/"+created.Event.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event deleted successfully!","deleted":false}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/events", token, nil)
	assert.Empty(t, decode[eventsResponse](t, rec).Events)
}

const importICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:a@test\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240308T150000Z\r\n" +
	"SUMMARY:Retro\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:b@test\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240309\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportAndExportICS(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/events/import", strings.NewReader(importICS))
	req.Header.Set("Content-Type", "text/calendar")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	imported := decode[importResponse](t, rec)
	assert.Equal(t, 1, imported.Imported)
	assert.Equal(t, 1, imported.Skipped)

	rec = env.do(t, http.MethodGet, "/api/events?date=2024-03-08", token, nil)
	events := decode[eventsResponse](t, rec).Events
	require.Len(t, events, 1)
	assert.Equal(t, "Retro", events[0].Title)
	assert.Equal(t, "03:00 PM", events[0].Time)

	rec = env.do(t, http.MethodGet, "/api/events.ics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "evcal.ics")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Retro")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestImportICS_FromURL(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = io.WriteString(w, importICS)
	}))
	defer feed.Close()

	cfg := testConfig()
	cfg.Import.AllowPrivate = true
	env := newTestEnv(t, cfg)
	token := env.signUp(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/events/import", token, map[string]string{"url": feed.URL + "/cal.ics"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[importResponse](t, rec).Imported)

	rec = env.do(t, http.MethodPost, "/api/events/import", token, map[string]string{"url": "ftp://example.com/cal.ics"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/events/import", token, map[string]string{"url": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportICS_FromURL_RefusesLocalHosts(t *testing.T) {
	var hits atomic.Int32
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, importICS)
	}))
	defer feed.Close()

	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	for _, u := range []string{feed.URL + "/cal.ics", "http://169.254.169.254/latest/meta-data/"} {
		rec := env.do(t, http.MethodPost, "/api/events/import", token, map[string]string{"url": u})
		assert.Equal(t, http.StatusBadRequest, rec.Code, u)
		assert.Contains(t, rec.Body.String(), "not allowed", u)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestImportICS_Rejects(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxBytes = 32
	env := newTestEnv(t, cfg)
	token := env.signUp(t, "ann@example.com")

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/events/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "text/calendar")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusRequestEntityTooLarge, post(importICS).Code)
	assert.Equal(t, http.StatusBadRequest, post("hello").Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.signUp(t, "ann@example.com")

	rec := env.do(t, http.MethodPost, "/api/events", token, addEventInput{Date: "2024-03-05", Title: "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, env.sessions.Len())

	rec = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decode[messageResponse](t, rec).Message)
	assert.Equal(t, 0, env.sessions.Len())

	rec = env.do(t, http.MethodGet, "/api/calendar", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/google/callback?state=x&code=y", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/auth?error=")
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/auth?error=Nope", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nope")
	assert.NotContains(t, rec.Body.String(), "/api/auth/google")

	token := env.signUp(t, "ann@example.com")
	for i := 0; i < 4; i++ {
		rec = env.do(t, http.MethodPost, "/api/events", token, addEventInput{Date: "2024-03-05", Title: "busy"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/calendar?notice=Welcome+back%21", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "March 2024")
	assert.Contains(t, body, "Welcome back!")
	assert.Contains(t, body, "+1 more")
	assert.Contains(t, body, "ann@example.com")

	rec = env.do(t, http.MethodGet, "/calendar?layout=compact", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "+2 more")
	assert.Contains(t, rec.Body.String(), `class="compact"`)

	rec = env.do(t, http.MethodGet, "/auth", token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestPreview(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token := env.signUp(t, "ann@example.com")
		rec := env.do(t, http.MethodGet, "/preview.png", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Preview.Enabled = true
		cfg.Preview.BaseURL = "http://render.internal:9000"

		var got capture.Options
		fake := func(_ context.Context, opts capture.Options) ([]byte, error) {
			got = opts
			return []byte("\x89PNG"), nil
		}
		env := newTestEnv(t, cfg, WithCapture(fake))
		token := env.signUp(t, "ann@example.com")

		rec := env.do(t, http.MethodGet, "/preview.png", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "\x89PNG", rec.Body.String())

		assert.Equal(t, "http://render.internal:9000/calendar", got.URL)
		assert.Equal(t, "Bearer "+token, got.Headers["Authorization"])
		assert.Equal(t, 800, got.Width)
		assert.Equal(t, 600, got.Height)
	})

	t.Run("capture failure", func(t *testing.T) {
		cfg := testConfig()
		cfg.Preview.Enabled = true
		fail := func(context.Context, capture.Options) ([]byte, error) {
			return nil, errors.New("chromium missing")
		}
		env := newTestEnv(t, cfg, WithCapture(fail))
		token := env.signUp(t, "ann@example.com")

		rec := env.do(t, http.MethodGet, "/preview.png", token, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
