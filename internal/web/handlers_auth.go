package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"evcal/internal/auth"
	appLog "evcal/internal/log"
	"evcal/internal/model"
)

type authResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    auth.User `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.Credentials
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.auth.SignUp(r.Context(), in)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}
	setSessionCookie(w, r, res)
	writeJSON(w, http.StatusCreated, authResponse{
		Message: "Account created successfully!",
		Token:   res.Token,
		User:    res.User,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in auth.Credentials
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := s.auth.SignIn(r.Context(), in)
	if err != nil {
		writeAuthFailure(w, err)
		return
	}
	setSessionCookie(w, r, res)
	writeJSON(w, http.StatusOK, authResponse{
		Message: "Welcome back!",
		Token:   res.Token,
		User:    res.User,
	})
}

// writeAuthFailure answers with the fixed message for err.
func writeAuthFailure(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailInUse):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredential):
		status = http.StatusUnauthorized
	default:
		appLog.Error("authentication failed", err)
		status = http.StatusBadGateway
	}
	writeError(w, status, auth.Message(err))
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	target, err := s.auth.GoogleAuthURL(state)
	if err != nil {
		writeError(w, http.StatusNotFound, auth.MsgGoogleFailed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	fail := func(reason string, err error) {
		appLog.Error("google sign-in failed", err, "reason", reason)
		http.Redirect(w, r, "/auth?error="+url.QueryEscape(auth.MsgGoogleFailed), http.StatusFound)
	}

	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil {
		fail("missing state cookie", err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		fail("state mismatch", errors.New("oauth state mismatch"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth/google", MaxAge: -1})

	if e := q.Get("error"); e != "" {
		fail("consent denied", errors.New(e))
		return
	}

	res, err := s.auth.SignInWithGoogle(r.Context(), q.Get("code"))
	if err != nil {
		fail("exchange", err)
		return
	}
	setSessionCookie(w, r, res)
	http.Redirect(w, r, "/calendar?notice="+url.QueryEscape("Signed in with Google!"), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, p principal) {
	if err := s.auth.Logout(r.Context(), p.Token); err != nil {
		appLog.Error("logout failed", err, "user_id", p.User.ID)
		writeError(w, http.StatusInternalServerError, auth.MsgLogoutFailed)
		return
	}
	s.sessions.Close(p.User.ID)
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, p principal) {
	writeJSON(w, http.StatusOK, struct {
		User auth.User `json:"user"`
	}{p.User})
}
