package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials checks the administrator login against a bcrypt hash.
type Credentials struct {
	User string
	Hash []byte
}

// NewCredentials creates a checker for user with a bcrypt password hash.
func NewCredentials(user, hash string) Credentials {
	return Credentials{User: user, Hash: []byte(hash)}
}

// Verify returns the admin principal when user and password match.
func (c Credentials) Verify(user, password string) (Principal, error) {
	if c.User == "" || len(c.Hash) == 0 {
		return Principal{}, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	// Compare the hash even on a wrong user so both paths cost the same.
	passErr := bcrypt.CompareHashAndPassword(c.Hash, []byte(password))
	if !userOK || passErr != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Subject: c.User, Role: RoleAdmin}, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}
