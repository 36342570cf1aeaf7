package auth

import (
	"errors"

	"evcal/internal/model"
)

// Provider failures. Handlers turn them into fixed user-facing text with
// Message.
var (
	ErrEmailInUse        = errors.New("auth: email already in use")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrWeakPassword      = errors.New("auth: weak password")
	ErrInvalidEmail      = errors.New("auth: invalid email")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrProviderFailure   = errors.New("auth: provider failure")
	ErrGoogleDisabled    = errors.New("auth: google sign-in not configured")
)

// Messages shown for flows that have a single failure text.
const (
	MsgGoogleFailed = "Failed to sign in with Google"
	MsgLogoutFailed = "Failed to log out"
)

// Message maps a sign-in or sign-up error to the notification shown to the
// user. Unknown errors get the generic retry text.
func Message(err error) string {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message()
	case errors.Is(err, ErrEmailInUse):
		return "Email already in use"
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid email or password"
	case errors.Is(err, ErrWeakPassword):
		return "Password is too weak"
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	default:
		return "Authentication failed. Please try again."
	}
}
