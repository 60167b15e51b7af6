package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the bcrypt input limit.
const MaxPasswordLength = 72

var ErrInvalidPassword = errors.New("invalid admin password")

// Gate checks the shared admin password. It only ever holds a bcrypt hash,
// so a configured literal is hashed once at construction.
type Gate struct {
	hash []byte
}

func NewGate(password string) (*Gate, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: []byte(hash)}, nil
}

func NewGateFromHash(hash string) (*Gate, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse admin password hash: %w", err)
	}
	return &Gate{hash: []byte(hash)}, nil
}

// Login reports whether password is the admin password. It has no side
// effects; callers turn a successful login into a session.
func (g *Gate) Login(password string) bool {
	if password == "" || len(password) > MaxPasswordLength {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
}

func HashPassword(password string) (string, error) {
	if password == "" || len(password) > MaxPasswordLength {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
