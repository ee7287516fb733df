package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// CredentialStore verifies and changes passwords.
type CredentialStore struct {
	users    UserRepository
	hashCost int
	now      func() time.Time

	// dummyHash is compared against when the username is unknown so the
	// response time does not reveal whether an account exists.
	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialStore creates a credential store over the given repository.
func NewCredentialStore(users UserRepository) *CredentialStore {
	return &CredentialStore{users: users, hashCost: BcryptCost, now: time.Now}
}

// VerifyCredentials returns the user when username exists, is active, and
// password matches. Every failure of those checks is ErrInvalidCredentials.
func (c *CredentialStore) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := c.users.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			checkPassword(c.timingHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	// Compare before looking at is_active so an inactive account costs the
	// same time as an active one.
	ok := checkPassword(user.PasswordHash, password)
	if !ok || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword re-verifies current before storing a hash of newPassword.
// Existing sessions are left alone.
func (c *CredentialStore) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("finding user: %w", err)
	}
	if !checkPassword(user.PasswordHash, current) {
		return ErrPasswordMismatch
	}

	return c.SetPassword(ctx, user.ID, newPassword)
}

// SetPassword hashes and stores a new password without checking the old one.
func (c *CredentialStore) SetPassword(ctx context.Context, userID, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword, c.hashCost)
	if err != nil {
		return err
	}
	if err := c.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	return nil
}

// CheckPassword reports whether password matches the stored hash for
// username without any side effects. Used by diagnostics only.
func (c *CredentialStore) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	user, err := c.users.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return false, nil
		}
		return false, fmt.Errorf("finding user: %w", err)
	}
	return checkPassword(user.PasswordHash, password), nil
}

// EnsureAdmin creates the administrator when no users exist. Returns the
// created user, or nil when the table was already populated.
func (c *CredentialStore) EnsureAdmin(ctx context.Context, seed AdminSeed) (*User, error) {
	count, err := c.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	username := strings.TrimSpace(seed.Username)
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if err := validatePassword(seed.Password); err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}

	hash, err := hashPassword(seed.Password, c.hashCost)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	displayName := strings.TrimSpace(seed.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating admin: %w", err)
	}
	return user, nil
}

func (c *CredentialStore) timingHash() string {
	c.dummyOnce.Do(func() {
		c.dummyHash, _ = hashPassword("mealboard-timing-equalizer", c.hashCost)
	})
	return c.dummyHash
}
