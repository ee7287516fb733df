package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptRepository persists the append-only login attempt log.
type AttemptRepository interface {
	Record(ctx context.Context, a *LoginAttempt) error

	// FailuresByUsername returns the times of failed attempts for username
	// strictly after since, oldest first.
	FailuresByUsername(ctx context.Context, username string, since time.Time) ([]time.Time, error)

	// FailuresByIP is FailuresByUsername keyed on source address.
	FailuresByIP(ctx context.Context, ip string, since time.Time) ([]time.Time, error)

	// Recent returns attempts after since, newest first, up to limit rows.
	Recent(ctx context.Context, since time.Time, limit int) ([]LoginAttempt, error)

	// DeleteForUsername clears a user's attempt history (operator reset).
	DeleteForUsername(ctx context.Context, username string) (int64, error)
}

type attemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a MariaDB-backed attempt repository.
func NewAttemptRepository(db *sql.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Record(ctx context.Context, a *LoginAttempt) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (username, ip_address, success, attempted_at) VALUES (?, ?, ?, ?)`,
		a.Username, a.IPAddress, a.Success, a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("inserting login attempt: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

func (r *attemptRepository) FailuresByUsername(ctx context.Context, username string, since time.Time) ([]time.Time, error) {
	return r.failureTimes(ctx,
		`SELECT attempted_at FROM login_attempts
		 WHERE username = ? AND success = 0 AND attempted_at > ?
		 ORDER BY attempted_at`, username, since)
}

func (r *attemptRepository) FailuresByIP(ctx context.Context, ip string, since time.Time) ([]time.Time, error) {
	return r.failureTimes(ctx,
		`SELECT attempted_at FROM login_attempts
		 WHERE ip_address = ? AND success = 0 AND attempted_at > ?
		 ORDER BY attempted_at`, ip, since)
}

func (r *attemptRepository) failureTimes(ctx context.Context, query, key string, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, query, key, since)
	if err != nil {
		return nil, fmt.Errorf("querying failed attempts: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning attempt time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *attemptRepository) Recent(ctx context.Context, since time.Time, limit int) ([]LoginAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, ip_address, success, attempted_at FROM login_attempts
		 WHERE attempted_at > ? ORDER BY attempted_at DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("listing login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []LoginAttempt
	for rows.Next() {
		var a LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.IPAddress, &a.Success, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scanning login attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *attemptRepository) DeleteForUsername(ctx context.Context, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("clearing login attempts: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
