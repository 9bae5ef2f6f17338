package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultBcryptCost is the cost factor for bcrypt password hashing.
const defaultBcryptCost = 12

// PasswordHasher hashes and verifies passwords using bcrypt. Each hash
// embeds its own random salt, so equal passwords produce different hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the production cost factor.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: defaultBcryptCost}
}

// NewPasswordHasherWithCost creates a hasher with a custom cost factor.
// Tests use bcrypt.MinCost to keep hashing fast.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of the given plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext password matches the stored hash.
func (h *PasswordHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
