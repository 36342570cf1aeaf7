package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"evcal/internal/model"
)

// Credentials is the email/password form input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs the form checks that happen before the identity provider is
// contacted.
func (c Credentials) Validate(minPassword int) error {
	var errs []model.FieldError
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, model.FieldError{Field: "email", Message: "required"})
	}
	if c.Password == "" {
		errs = append(errs, model.FieldError{Field: "password", Message: "required"})
	}
	if len(errs) > 0 {
		return &model.ValidationError{Errors: errs, Notice: "Please fill in all fields"}
	}

	if utf8.RuneCountInString(c.Password) < minPassword {
		msg := fmt.Sprintf("Password must be at least %d characters", minPassword)
		return &model.ValidationError{
			Errors: []model.FieldError{{Field: "password", Message: "too short"}},
			Notice: msg,
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
