package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	appLog "evcal/internal/log"
)

// Made a variable for testing purposes.
var googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Identity is what Google tells us about the person signing in.
type Identity struct {
	Subject string
	Email   string
}

// GoogleProvider runs the OAuth authorization-code flow against Google.
type GoogleProvider struct {
	conf        *oauth2.Config
	userinfoURL string
}

// NewGoogleProvider configures the flow with the "openid email" scopes.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     endpoints.Google,
		},
		userinfoURL: googleUserinfoURL,
	}
}

// AuthCodeURL is where the browser is sent to consent.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Exchange trades an authorization code for the caller's verified identity.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	if code == "" {
		return Identity{}, fmt.Errorf("%w: empty authorization code", ErrProviderFailure)
	}

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		appLog.Error("google token exchange failed", err)
		return Identity{}, fmt.Errorf("%w: token exchange: %w", ErrProviderFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("create userinfo request: %w", err)
	}
	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		appLog.Error("google userinfo failed", err)
		return Identity{}, fmt.Errorf("%w: userinfo: %w", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		appLog.Warn("google userinfo failed", "status", resp.StatusCode)
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrProviderFailure, resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("%w: invalid userinfo response: %w", ErrProviderFailure, err)
	}
	if info.ID == "" || info.Email == "" {
		return Identity{}, fmt.Errorf("%w: userinfo missing id or email", ErrProviderFailure)
	}
	if !info.VerifiedEmail {
		return Identity{}, fmt.Errorf("%w: email not verified", ErrProviderFailure)
	}

	appLog.Debug("google oauth success", "email", info.Email)
	return Identity{Subject: info.ID, Email: info.Email}, nil
}
