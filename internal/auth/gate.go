// Package auth implements the optional admin gate. When no password hash is
// configured the gate is open and every request passes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Gate checks admin credentials and session tokens.
type Gate struct {
	Username     string
	PasswordHash string
	Secret       string
}

// Enabled reports whether requests must be authenticated.
func (g *Gate) Enabled() bool {
	return g != nil && g.PasswordHash != ""
}

// Login verifies the credentials and returns a signed session token.
func (g *Gate) Login(username, password string) (string, error) {
	if username != g.Username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return issueToken(g.Secret, username, time.Now())
}

// Check validates a session token.
func (g *Gate) Check(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	return parseToken(g.Secret, token)
}

// HashPassword returns the bcrypt hash to configure as the admin password.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
