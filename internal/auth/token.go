package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	resetIssuer = "ficore"

	// ResetTokenTTL is the embedded expiry of password-reset tokens.
	ResetTokenTTL = 15 * time.Minute
)

// ErrInvalidToken indicates the reset token failed validation or expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateResetToken signs a password-reset token for the given email with a
// 15-minute embedded expiry.
func GenerateResetToken(secret, email string, now time.Time) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	claims := resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    resetIssuer,
			Subject:   "password_reset",
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(now.UTC().Add(ResetTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseResetToken verifies the token signature and expiry and returns the
// email it was issued for.
func ParseResetToken(secret, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &resetClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*resetClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != resetIssuer || claims.Subject != "password_reset" {
		return "", ErrInvalidToken
	}
	if claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}
