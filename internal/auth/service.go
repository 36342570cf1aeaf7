// Package auth signs users in with email/password or Google and hands out
// session tokens. Everything else in the application only sees User.
package auth

import (
	"context"
	"fmt"
	"time"

	appLog "evcal/internal/log"
)

// Provider is the identity collaborator the HTTP layer talks to.
type Provider interface {
	SignUp(ctx context.Context, c Credentials) (*Result, error)
	SignIn(ctx context.Context, c Credentials) (*Result, error)
	GoogleAuthURL(state string) (string, error)
	SignInWithGoogle(ctx context.Context, code string) (*Result, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (User, error)
}

// Result is a successful sign-in.
type Result struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Service is the in-process Provider.
type Service struct {
	dir         *Directory
	tokens      *TokenManager
	google      *GoogleProvider
	minPassword int
}

var _ Provider = (*Service)(nil)

// NewService wires the directory and token manager. google may be nil when
// Google sign-in is not configured.
func NewService(dir *Directory, tokens *TokenManager, google *GoogleProvider, minPassword int) *Service {
	return &Service{dir: dir, tokens: tokens, google: google, minPassword: minPassword}
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, c Credentials) (*Result, error) {
	if err := c.Validate(s.minPassword); err != nil {
		return nil, err
	}
	user, err := s.dir.Create(c.Email, c.Password)
	if err != nil {
		return nil, err
	}
	res, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("auth.SignUp: %w", err)
	}
	appLog.Info("account created", "user_id", user.ID)
	return res, nil
}

// SignIn authenticates an existing password account.
func (s *Service) SignIn(ctx context.Context, c Credentials) (*Result, error) {
	if err := c.Validate(s.minPassword); err != nil {
		return nil, err
	}
	user, err := s.dir.Authenticate(c.Email, c.Password)
	if err != nil {
		return nil, err
	}
	res, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("auth.SignIn: %w", err)
	}
	appLog.Info("user signed in", "user_id", user.ID, "provider", ProviderPassword)
	return res, nil
}

// GoogleAuthURL returns the consent URL carrying state.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// SignInWithGoogle completes the OAuth callback.
func (s *Service) SignInWithGoogle(ctx context.Context, code string) (*Result, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	id, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	user := s.dir.Federated(id.Email, ProviderGoogle)
	res, err := s.issue(user)
	if err != nil {
		return nil, fmt.Errorf("auth.SignInWithGoogle: %w", err)
	}
	appLog.Info("user signed in", "user_id", user.ID, "provider", ProviderGoogle)
	return res, nil
}

// Logout revokes token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(token); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	return nil
}

// CurrentUser resolves a token to its user.
func (s *Service) CurrentUser(ctx context.Context, token string) (User, error) {
	c, err := s.tokens.Validate(token)
	if err != nil {
		return User{}, err
	}
	user, ok := s.dir.Lookup(c.UserID)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	return user, nil
}

func (s *Service) issue(user User) (*Result, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, ExpiresAt: exp, User: user}, nil
}
