// Package auth provides HTTP Basic authentication against configured credentials.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the supplied username or password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials holds the accepted username and either a plaintext password or a bcrypt hash.
// When PasswordHash is set it takes precedence over Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// Validator compares request-supplied credentials with the configured pair.
type Validator struct {
	creds Credentials
}

// NewValidator creates a Validator for the given credentials.
func NewValidator(creds Credentials) *Validator {
	return &Validator{creds: creds}
}

// Validate returns the username when both username and password match.
// Username and plaintext password comparisons are constant-time.
func (v *Validator) Validate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.creds.Username)) == 1

	var passOK bool
	if v.creds.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(v.creds.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(v.creds.Password)) == 1
	}

	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return username, nil
}
