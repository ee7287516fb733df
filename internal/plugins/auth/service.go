package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/metrics"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
)

// recentAttemptsLimit caps the attempt listing in diagnostics.
const recentAttemptsLimit = 50

// maxUsernameLength is the width of users.username and login_attempts.username.
const maxUsernameLength = 100

// attemptKey bounds a submitted username to the stored column width for
// the throttle and the attempt log. A longer name matches no account.
func attemptKey(username string) string {
	if utf8.RuneCountInString(username) <= maxUsernameLength {
		return username
	}
	return string([]rune(username)[:maxUsernameLength])
}

// AuthService defines the business logic contract for authentication.
// Handlers and mealctl call these methods -- they never touch the
// components or repositories directly.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, p *Principal, token, ip string) error
	ChangePassword(ctx context.Context, p *Principal, current, newPassword, ip string) error
	ValidateSession(ctx context.Context, token string) (*Principal, error)
	PurgeStaleSessions(ctx context.Context) (int64, error)

	// Operator tooling.
	EnsureAdmin(ctx context.Context, seed AdminSeed) error
	ResetPassword(ctx context.Context, username, newPassword string) (int64, error)
	RevokeUserSessions(ctx context.Context, username string) (int64, error)
	Diagnose(ctx context.Context, input DiagnoseInput) (*Diagnosis, error)
}

// AuditLogger is the subset of the audit service used here.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

// Deps bundles the collaborators of the auth service.
type Deps struct {
	Users       UserRepository
	Attempts    AttemptRepository
	Credentials *CredentialStore
	Throttle    *Throttle
	Sessions    *SessionManager
	Audit       AuditLogger
	Metrics     *metrics.Metrics
}

// authService implements AuthService.
type authService struct {
	users    UserRepository
	attempts AttemptRepository
	creds    *CredentialStore
	throttle *Throttle
	sessions *SessionManager
	audit    AuditLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(d Deps) AuthService {
	return &authService{
		users:    d.Users,
		attempts: d.Attempts,
		creds:    d.Credentials,
		throttle: d.Throttle,
		sessions: d.Sessions,
		audit:    d.Audit,
		metrics:  d.Metrics,
		now:      time.Now,
	}
}

// Login runs the throttle, checks credentials, records the attempt and
// issues a session, in that order. The attempt is stored before any
// response is produced, and the session row before the token is returned.
func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperror.NewBadRequest("username and password are required")
	}
	key := attemptKey(username)

	lock, err := s.throttle.Check(ctx, key, input.IP)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if lock.Locked {
		// Blocked requests never reach the credential check and are not
		// appended to the attempt log, so the lock lifts exactly one
		// window after the oldest counted failure.
		s.metrics.LoginAttempt(metrics.LoginBlocked)
		s.record(ctx, &audit.Entry{
			Action:     audit.ActionLoginBlocked,
			Resource:   "user",
			ResourceID: key,
			IPAddress:  input.IP,
			Details: map[string]any{
				"username_failures": lock.UsernameFailures,
				"ip_failures":       lock.IPFailures,
				"retry_after_secs":  int64(lock.RetryAfter.Seconds()),
			},
		})
		slog.Warn("login blocked by throttle",
			slog.String("username", key),
			slog.String("ip", input.IP),
			slog.Duration("retry_after", lock.RetryAfter),
		)
		return nil, apperror.NewTooManyRequests("too many failed login attempts, try again later", lock.RetryAfter)
	}

	var user *User
	if key != username {
		err = ErrInvalidCredentials
	} else {
		user, err = s.creds.VerifyCredentials(ctx, username, input.Password)
	}
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			return nil, apperror.NewInternal(err)
		}
		if err := s.throttle.RecordAttempt(ctx, key, input.IP, false); err != nil {
			return nil, apperror.NewInternal(err)
		}
		s.metrics.LoginAttempt(metrics.LoginFailure)
		s.record(ctx, &audit.Entry{
			Action:     audit.ActionLoginFailed,
			Resource:   "user",
			ResourceID: key,
			IPAddress:  input.IP,
		})
		return nil, apperror.NewUnauthorized(ErrInvalidCredentials.Error())
	}

	if err := s.throttle.RecordAttempt(ctx, key, input.IP, true); err != nil {
		return nil, apperror.NewInternal(err)
	}

	issued, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.record(ctx, &audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionLoginSucceeded,
		Resource:   "user",
		ResourceID: user.Username,
		IPAddress:  input.IP,
	})
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	// Opportunistic garbage collection; validation already ignores these rows.
	if _, err := s.PurgeStaleSessions(ctx); err != nil {
		slog.Warn("failed to purge stale sessions", slog.Any("error", err))
	}

	return &LoginResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		ExpiresIn: issued.ExpiresAt.Sub(now),
		User:      user,
	}, nil
}

// Logout revokes the session behind token.
func (s *authService) Logout(ctx context.Context, p *Principal, token, ip string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking session: %w", err))
	}
	entry := &audit.Entry{Action: audit.ActionLogout, Resource: "session", IPAddress: ip}
	if p != nil {
		entry.UserID = p.UserID
	}
	s.record(ctx, entry)
	return nil
}

// ChangePassword changes the caller's own password. Sessions stay valid.
func (s *authService) ChangePassword(ctx context.Context, p *Principal, current, newPassword, ip string) error {
	if p == nil {
		return apperror.NewUnauthorized("unauthorized")
	}

	err := s.creds.ChangePassword(ctx, p.UserID, current, newPassword)
	switch {
	case err == nil:
	case errors.Is(err, ErrWeakPassword):
		return apperror.NewWeakPassword(ErrWeakPassword.Error())
	case errors.Is(err, ErrPasswordMismatch):
		return apperror.NewPasswordMismatch(ErrPasswordMismatch.Error())
	case apperror.IsType(err, "not_found"):
		return apperror.NewUnauthorized("unauthorized")
	default:
		return apperror.NewInternal(fmt.Errorf("changing password: %w", err))
	}

	s.record(ctx, &audit.Entry{
		UserID:     p.UserID,
		Action:     audit.ActionPasswordChanged,
		Resource:   "user",
		ResourceID: p.Username,
		IPAddress:  ip,
	})
	slog.Info("password changed", slog.String("user_id", p.UserID))
	return nil
}

// ValidateSession resolves a bearer token to a principal. Any failure is
// ErrInvalidSession; storage problems are logged here.
func (s *authService) ValidateSession(ctx context.Context, token string) (*Principal, error) {
	p, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidSession) {
			slog.Error("session validation failed", slog.Any("error", err))
		}
		return nil, ErrInvalidSession
	}
	return p, nil
}

// PurgeStaleSessions deletes expired and revoked sessions.
func (s *authService) PurgeStaleSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.PurgeStale(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.SessionsPurged(n)
	if n > 0 {
		slog.Debug("purged stale sessions", slog.Int64("count", n))
	}
	return n, nil
}

// EnsureAdmin seeds the administrator on an empty database.
func (s *authService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	user, err := s.creds.EnsureAdmin(ctx, seed)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if user != nil {
		s.record(ctx, &audit.Entry{
			UserID:     user.ID,
			Action:     audit.ActionAdminSeeded,
			Resource:   "user",
			ResourceID: user.Username,
		})
		slog.Info("seeded administrator account", slog.String("username", user.Username))
	}
	return nil
}

// ResetPassword is the operator recovery path: set a new password,
// reactivate the account, clear its attempt history and revoke all of its
// sessions. Returns the number of sessions revoked.
func (s *authService) ResetPassword(ctx context.Context, username, newPassword string) (int64, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return 0, err
		}
		return 0, apperror.NewInternal(err)
	}

	if err := s.creds.SetPassword(ctx, user.ID, newPassword); err != nil {
		if errors.Is(err, ErrWeakPassword) {
			return 0, apperror.NewWeakPassword(ErrWeakPassword.Error())
		}
		return 0, apperror.NewInternal(err)
	}
	if err := s.users.SetActive(ctx, user.ID, true); err != nil {
		return 0, apperror.NewInternal(err)
	}
	cleared, err := s.attempts.DeleteForUsername(ctx, user.Username)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}

	s.record(ctx, &audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionPasswordReset,
		Resource:   "user",
		ResourceID: user.Username,
		Details: map[string]any{
			"attempts_cleared": cleared,
			"sessions_revoked": revoked,
		},
	})
	slog.Info("password reset by operator",
		slog.String("username", user.Username),
		slog.Int64("attempts_cleared", cleared),
		slog.Int64("sessions_revoked", revoked),
	)
	return revoked, nil
}

// RevokeUserSessions revokes every session of the named user.
func (s *authService) RevokeUserSessions(ctx context.Context, username string) (int64, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return 0, err
		}
		return 0, apperror.NewInternal(err)
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	s.record(ctx, &audit.Entry{
		UserID:     user.ID,
		Action:     audit.ActionSessionsRevoked,
		Resource:   "user",
		ResourceID: user.Username,
		Details:    map[string]any{"sessions_revoked": revoked},
	})
	return revoked, nil
}

// Diagnose reports users, recent attempts and lock status. A supplied
// password is checked without recording an attempt.
func (s *authService) Diagnose(ctx context.Context, input DiagnoseInput) (*Diagnosis, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	since := s.now().UTC().Add(-s.throttle.Window())
	recent, err := s.attempts.Recent(ctx, since, recentAttemptsLimit)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	d := &Diagnosis{Users: users, RecentAttempts: recent}

	if input.Username != "" || input.IP != "" {
		d.Lockout, err = s.throttle.Check(ctx, input.Username, input.IP)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
	}

	if input.Username != "" && input.Password != "" {
		d.PasswordChecked = true
		d.PasswordValid, err = s.creds.CheckPassword(ctx, input.Username, input.Password)
		if err != nil {
			return nil, apperror.NewInternal(err)
		}
	}
	return d, nil
}

// record writes an audit entry. Audit failures are logged by the audit
// service and never fail the primary operation.
func (s *authService) record(ctx context.Context, entry *audit.Entry) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Log(ctx, entry)
}
