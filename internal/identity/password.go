package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor. Spec requires cost >= 10; bcrypt's
// own default is 10, which already satisfies that floor.
const passwordCost = bcrypt.DefaultCost

// HashPassword returns the adaptive-hash digest for a plaintext password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt digest.
// Verification cost is constant within bcrypt regardless of match/mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
