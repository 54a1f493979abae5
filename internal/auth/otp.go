package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPTTL is how long a one-time password stays valid.
const OTPTTL = 5 * time.Minute

// GenerateOTP returns a six-digit numeric one-time password.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPValid reports whether the submitted code matches the stored one and the
// expiry has not passed.
func OTPValid(stored, submitted string, expiry *time.Time, now time.Time) bool {
	if stored == "" || submitted == "" || expiry == nil {
		return false
	}
	if now.After(*expiry) {
		return false
	}
	return stored == submitted
}
