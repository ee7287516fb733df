// Package auth handles authentication and the session lifecycle for
// Mealboard: bcrypt credential checks, the failed-login throttle, signed
// session tokens tracked server-side for revocation, and the Echo middleware
// that guards every privileged route.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"errors"
	"time"
)

// Component-level errors. The service maps these to apperror values at the
// HTTP boundary.
var (
	// ErrInvalidCredentials covers unknown usernames, inactive users and
	// wrong passwords alike so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrWeakPassword is returned when a new password fails the length policy.
	ErrWeakPassword = errors.New("password must be between 8 and 72 characters")

	// ErrPasswordMismatch is returned when the current password is wrong.
	ErrPasswordMismatch = errors.New("current password is incorrect")

	// ErrInvalidSession covers bad signatures, expired tokens, revoked or
	// missing sessions and inactive users.
	ErrInvalidSession = errors.New("invalid session")
)

// User is a stored account. There is normally exactly one: the seeded
// household administrator.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	DisplayName  string     `json:"display_name"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal is the authenticated identity attached to a request. IPAddress
// is the client address of that request and is filled in by RequireAuth.
type Principal struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	IPAddress string `json:"-"`
}

// Session is a server-side record of an issued token. Only the SHA-256 of
// the token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// SessionLookup is a session row joined with its owner. A session whose
// user no longer exists comes back with UserActive false.
type SessionLookup struct {
	Session
	Username   string
	UserActive bool
}

// LoginAttempt is one row of the append-only attempt log.
type LoginAttempt struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	IPAddress   string    `json:"ip_address"`
	Success     bool      `json:"success"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// IssuedToken is what a successful login hands back to the client.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Lockout is the throttle's verdict for a (username, ip) pair.
type Lockout struct {
	Locked           bool
	RetryAfter       time.Duration
	UsernameFailures int
	IPFailures       int
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// --- Service Input/Output DTOs ---

// LoginInput is the validated input for a login attempt.
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
	User      *User
}

// --- Response DTOs ---

// loginUser is the user summary in a login response.
type loginUser struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// LoginResponse is the body of a successful login. ExpiresIn is in seconds.
type LoginResponse struct {
	Token     string    `json:"token"`
	User      loginUser `json:"user"`
	ExpiresIn int64     `json:"expiresIn"`
}

// successResponse is the body of logout and change-password.
type successResponse struct {
	Success bool `json:"success"`
}

// --- Operator tooling ---

// AdminSeed describes the administrator created on an empty database.
type AdminSeed struct {
	Username    string
	DisplayName string
	Password    string
}

// DiagnoseInput selects what mealctl diagnose reports on.
type DiagnoseInput struct {
	Username string
	IP       string

	// Password, when non-empty, is checked against the stored hash without
	// recording a login attempt.
	Password string
}

// Diagnosis is the report produced for mealctl diagnose.
type Diagnosis struct {
	Users          []User
	RecentAttempts []LoginAttempt
	Lockout        Lockout

	// PasswordChecked is false when no password was supplied.
	PasswordChecked bool
	PasswordValid   bool
}
