// Package auth guards the admin API with a single configured identity.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoCredentials is returned when the gate is built without a username or password.
var ErrNoCredentials = errors.New("auth: admin username and password are required")

// Gate validates admin credentials. It holds no session state: every call
// is decided from the credential pair alone.
type Gate struct {
	username     []byte
	passwordHash []byte
}

// NewGate hashes password with bcrypt and returns a Gate for the pair.
func NewGate(username, password string) (*Gate, error) {
	if username == "" || password == "" {
		return nil, ErrNoCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash admin password: %w", err)
	}
	return &Gate{username: []byte(username), passwordHash: hash}, nil
}

// NewGateWithHash returns a Gate for username and a precomputed bcrypt hash.
func NewGateWithHash(username, hash string) (*Gate, error) {
	if username == "" || hash == "" {
		return nil, ErrNoCredentials
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	return &Gate{username: []byte(username), passwordHash: []byte(hash)}, nil
}

// maxPasswordBytes is the bcrypt input limit; longer candidates would be
// compared on their first 72 bytes only.
const maxPasswordBytes = 72

// Authenticate reports whether the pair matches the configured identity.
// The username comparison always runs so timing does not reveal which part failed.
func (g *Gate) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), g.username) == 1
	if len(password) > maxPasswordBytes {
		return false
	}
	passErr := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))
	return userOK && passErr == nil
}
