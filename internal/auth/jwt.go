package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultSessionDuration = 12 * time.Hour
	sessionTokenType       = "session"
)

type Claims struct {
	Admin      bool   `json:"adm"`
	TokenType  string `json:"type"`
	Generation uint64 `json:"gen,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs an admin session token. generation ties the token
// to the logout counter it was issued under.
func GenerateSessionToken(secret string, duration time.Duration, generation uint64) (string, time.Time, error) {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	now := time.Now()
	expiresAt := now.Add(duration)
	claims := &Claims{
		Admin:      true,
		TokenType:  sessionTokenType,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ValidateToken(secret string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != sessionTokenType {
		return nil, fmt.Errorf("invalid token type %q", claims.TokenType)
	}
	return claims, nil
}
