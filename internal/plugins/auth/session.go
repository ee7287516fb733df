package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// SessionManager issues session tokens and tracks them server-side so they
// can be revoked before they expire.
type SessionManager struct {
	sessions SessionRepository
	signer   *TokenSigner
	now      func() time.Time
}

// NewSessionManager creates a session manager.
func NewSessionManager(sessions SessionRepository, signer *TokenSigner) *SessionManager {
	return &SessionManager{sessions: sessions, signer: signer, now: time.Now}
}

// Issue signs a token for user and stores its hash. The token is only
// returned once the session row exists.
func (m *SessionManager) Issue(ctx context.Context, user *User) (*IssuedToken, error) {
	token, expiresAt, err := m.signer.Sign(user)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: m.now().UTC(),
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// Validate checks the token signature and expiry, then the stored session.
// Every rejection is ErrInvalidSession. Storage failures come back as other
// errors so the caller can log them; they must still be treated as a
// rejection.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	claims, err := m.signer.Parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	l, err := m.sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if apperror.IsType(err, "not_found") {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	if l.Revoked || !l.ExpiresAt.After(m.now()) || !l.UserActive || l.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}

	return &Principal{UserID: l.UserID, Username: l.Username}, nil
}

// Revoke marks the session for token revoked. Revoking an unknown token is
// not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if _, err := m.sessions.RevokeByTokenHash(ctx, HashToken(token)); err != nil {
		return err
	}
	return nil
}

// RevokeAllForUser revokes every live session of a user and returns how
// many were revoked.
func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return m.sessions.RevokeAllForUser(ctx, userID)
}

// PurgeStale deletes expired and revoked session rows.
func (m *SessionManager) PurgeStale(ctx context.Context) (int64, error) {
	return m.sessions.DeleteStale(ctx, m.now().UTC())
}
