// Package session keeps one calendar Board per signed-in user and discards
// boards that have been idle too long.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"evcal/internal/calendar"
	appLog "evcal/internal/log"
)

// Session is the calendar state owned by one user. The Board itself is not
// safe for concurrent use, so every access goes through Do.
type Session struct {
	UserID string
	Email  string

	mu       sync.Mutex
	board    *calendar.Board
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's board.
func (s *Session) Do(fn func(b *calendar.Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.board)
}

// View returns the current render model.
func (s *Session) View() calendar.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.View()
}

// Registry maps user ids to live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL   time.Duration
	now       func() time.Time
	boardOpts []calendar.Option

	cron *cron.Cron
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now for idle accounting.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithBoardOptions is applied to every Board the registry creates.
func WithBoardOptions(opts ...calendar.Option) Option {
	return func(r *Registry) { r.boardOpts = append(r.boardOpts, opts...) }
}

// NewRegistry returns an empty registry. idleTTL <= 0 disables sweeping.
func NewRegistry(idleTTL time.Duration, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the user's session, creating it with a fresh board when none
// exists yet.
func (r *Registry) Open(userID, email string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[userID]; ok {
		s.lastSeen = now
		return s
	}
	s := &Session{
		UserID:   userID,
		Email:    email,
		board:    calendar.NewBoard(r.boardOpts...),
		lastSeen: now,
	}
	r.sessions[userID] = s
	appLog.Debug("session opened", "user_id", userID)
	return s
}

// Get returns the live session for userID and marks it as used.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if ok {
		s.lastSeen = r.now()
	}
	return s, ok
}

// Close discards the user's session and its events. It reports whether a
// session existed.
func (r *Registry) Close(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		return false
	}
	delete(r.sessions, userID)
	appLog.Debug("session closed", "user_id", userID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the registry's TTL and returns
// how many were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	n := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// StartSweeper schedules Sweep on a cron spec such as "@every 5m" or
// "*/5 * * * *". Call Stop to end it.
func (r *Registry) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := r.Sweep(); n > 0 {
			appLog.Info("idle sessions swept", "count", n, "remaining", r.Len())
		}
	}); err != nil {
		return fmt.Errorf("session: sweep schedule %q: %w", spec, err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	appLog.Info("session sweeper started", "schedule", spec, "idle_ttl", r.idleTTL.String())
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish or ctx to
// expire.
func (r *Registry) Stop(ctx context.Context) {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
