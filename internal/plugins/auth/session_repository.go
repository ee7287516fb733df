package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// SessionRepository persists issued sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error

	// FindByTokenHash returns the session and its owner's status.
	// Returns apperror.NotFound when no row matches.
	FindByTokenHash(ctx context.Context, tokenHash string) (*SessionLookup, error)

	// RevokeByTokenHash marks one session revoked. Reports whether a row matched.
	RevokeByTokenHash(ctx context.Context, tokenHash string) (bool, error)

	// RevokeAllForUser marks every live session of a user revoked.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteStale removes sessions that are expired or revoked.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a MariaDB-backed session repository.
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.Revoked, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// FindByTokenHash left-joins users so a session whose user row is gone is
// still returned, with UserActive false.
func (r *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*SessionLookup, error) {
	query := `SELECT s.id, s.user_id, s.token_hash, s.expires_at, s.revoked, s.created_at,
	                 COALESCE(u.username, ''), COALESCE(u.is_active, 0)
	          FROM sessions s
	          LEFT JOIN users u ON u.id = s.user_id
	          WHERE s.token_hash = ?`

	l := &SessionLookup{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&l.ID, &l.UserID, &l.TokenHash, &l.ExpiresAt, &l.Revoked, &l.CreatedAt,
		&l.Username, &l.UserActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return l, nil
}

func (r *sessionRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return false, fmt.Errorf("revoking session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoking user sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *sessionRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ? OR revoked = 1`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting stale sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
