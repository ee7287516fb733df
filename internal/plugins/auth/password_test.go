package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"empty", "", true},
		{"seven chars", "1234567", true},
		{"eight chars", "12345678", false},
		{"72 bytes", strings.Repeat("a", 72), false},
		{"73 bytes", strings.Repeat("a", 73), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.pw)
			if tt.wantErr && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("expected ErrWeakPassword, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := hashPassword("changeMe123!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if hash == "changeMe123!" {
		t.Fatal("hash must not equal plaintext")
	}
	if !checkPassword(hash, "changeMe123!") {
		t.Error("expected matching password to verify")
	}
	if checkPassword(hash, "changeme123!") {
		t.Error("expected wrong password to fail")
	}
	if checkPassword("not-a-bcrypt-hash", "changeMe123!") {
		t.Error("expected malformed hash to fail")
	}
}

func TestDefaultCostMeetsPolicy(t *testing.T) {
	if BcryptCost < 10 {
		t.Fatalf("bcrypt cost %d is below the minimum of 10", BcryptCost)
	}
}
