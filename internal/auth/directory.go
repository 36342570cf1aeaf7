package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Sign-in methods recorded on a User.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is the identity handed to the calendar once signed in.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

type account struct {
	user User
	hash []byte
}

// Directory is the in-memory account store. Emails are unique after
// lower-casing; password accounts keep only a bcrypt hash.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account

	cost      int
	minLength int
}

// NewDirectory returns an empty directory hashing with the given bcrypt cost.
// Passwords shorter than minLength are refused as weak.
func NewDirectory(cost, minLength int) *Directory {
	return &Directory{
		byEmail:   make(map[string]*account),
		byID:      make(map[string]*account),
		cost:      cost,
		minLength: minLength,
	}
}

// Create registers a password account.
func (d *Directory) Create(email, password string) (User, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return User{}, ErrInvalidEmail
	}
	if len(password) < d.minLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return User{}, ErrWeakPassword
		}
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[email]; ok {
		return User{}, ErrEmailInUse
	}
	acc := &account{
		user: User{ID: uuid.NewString(), Email: email, Provider: ProviderPassword},
		hash: hash,
	}
	d.byEmail[email] = acc
	d.byID[acc.user.ID] = acc
	return acc.user, nil
}

// Authenticate checks an email/password pair. Unknown email, wrong password
// and accounts without a password all yield ErrInvalidCredential.
func (d *Directory) Authenticate(email, password string) (User, error) {
	d.mu.RLock()
	acc, ok := d.byEmail[normalizeEmail(email)]
	d.mu.RUnlock()

	if !ok || acc.hash == nil {
		return User{}, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredential
	}
	return acc.user, nil
}

// Federated returns the account for an externally verified email, creating a
// password-less one on first sign-in. An existing account keeps its id.
func (d *Directory) Federated(email, provider string) User {
	email = normalizeEmail(email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if acc, ok := d.byEmail[email]; ok {
		return acc.user
	}
	acc := &account{user: User{ID: uuid.NewString(), Email: email, Provider: provider}}
	d.byEmail[email] = acc
	d.byID[acc.user.ID] = acc
	return acc.user
}

// Lookup finds a user by id.
func (d *Directory) Lookup(id string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byID[id]
	if !ok {
		return User{}, false
	}
	return acc.user, true
}
