package auth

import (
	"context"
	"fmt"
	"time"
)

// Throttle is the failed-login lockout. Counts are recomputed from the
// attempt log on every check, separately per username and per source
// address, so the verdict is the same on every server instance.
type Throttle struct {
	attempts    AttemptRepository
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

// NewThrottle creates a throttle that locks after maxFailures failed
// attempts inside the trailing window.
func NewThrottle(attempts AttemptRepository, maxFailures int, window time.Duration) *Throttle {
	return &Throttle{
		attempts:    attempts,
		maxFailures: maxFailures,
		window:      window,
		now:         time.Now,
	}
}

// Window returns the trailing counting window.
func (t *Throttle) Window() time.Duration {
	return t.window
}

// RecordAttempt appends one attempt to the log. It is always called for
// real credential checks, successful or not. A success does not clear
// earlier failures; they only age out of the window.
func (t *Throttle) RecordAttempt(ctx context.Context, username, ip string, success bool) error {
	err := t.attempts.Record(ctx, &LoginAttempt{
		Username:    username,
		IPAddress:   ip,
		Success:     success,
		AttemptedAt: t.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	return nil
}

// Check returns the lockout state for a username and source address.
// RetryAfter is the time until enough failures age out that both counts
// are back below the limit.
func (t *Throttle) Check(ctx context.Context, username, ip string) (Lockout, error) {
	now := t.now().UTC()
	since := now.Add(-t.window)

	byUser, err := t.attempts.FailuresByUsername(ctx, username, since)
	if err != nil {
		return Lockout{}, fmt.Errorf("counting username failures: %w", err)
	}
	byIP, err := t.attempts.FailuresByIP(ctx, ip, since)
	if err != nil {
		return Lockout{}, fmt.Errorf("counting ip failures: %w", err)
	}

	l := Lockout{UsernameFailures: len(byUser), IPFailures: len(byIP)}
	l.RetryAfter = max(t.retryAfter(byUser, now), t.retryAfter(byIP, now))
	l.Locked = l.RetryAfter > 0
	return l, nil
}

// IsLocked is the boolean form of Check.
func (t *Throttle) IsLocked(ctx context.Context, username, ip string) (bool, error) {
	l, err := t.Check(ctx, username, ip)
	if err != nil {
		return false, err
	}
	return l.Locked, nil
}

// retryAfter returns how long until len(failures) drops below maxFailures.
// failures must be sorted oldest first and all inside the window. Zero
// means not locked.
func (t *Throttle) retryAfter(failures []time.Time, now time.Time) time.Duration {
	excess := len(failures) - t.maxFailures
	if excess < 0 {
		return 0
	}
	// Once failures[excess] ages out, only maxFailures-1 remain.
	wait := failures[excess].Add(t.window).Sub(now)
	if wait <= 0 {
		return 0
	}
	return wait
}
