package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor for stored hashes.
	BcryptCost = 12

	// MinPasswordLength is the shortest password accepted on change or reset.
	MinPasswordLength = 8

	maxPasswordBytes = 72
)

// hashPassword hashes a plaintext password with bcrypt at the given cost.
func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// checkPassword reports whether password matches hash. bcrypt compares in
// constant time. Malformed hashes report false.
func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// validatePassword enforces the password policy.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	// bcrypt silently truncates past 72 bytes; refuse instead.
	if len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}
	return nil
}
