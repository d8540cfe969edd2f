package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no stored hash exists, so a miss costs
// about the same as a wrong password.
var (
	dummyOnce sync.Once
	dummyHash []byte
)

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

func VerifyPassword(hash, plain string) bool {
	return CheckPassword(hash, plain) == nil
}

// BurnComparison spends one bcrypt comparison without a real hash.
func BurnComparison(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
