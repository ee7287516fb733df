package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionManager_IssueStoresHashOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issued, err := env.manager.Issue(ctx, env.admin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	env.sessions.mu.Lock()
	defer env.sessions.mu.Unlock()
	if _, ok := env.sessions.sessions[HashToken(issued.Token)]; !ok {
		t.Fatal("expected session row keyed by token hash")
	}
	for hash, s := range env.sessions.sessions {
		if hash == issued.Token || s.TokenHash == issued.Token {
			t.Fatal("raw token must never be stored")
		}
		if !s.ExpiresAt.Equal(issued.ExpiresAt) {
			t.Errorf("stored expiry %v != issued %v", s.ExpiresAt, issued.ExpiresAt)
		}
	}
}

func TestSessionManager_IssueFailsWithoutRow(t *testing.T) {
	env := newTestEnv(t)
	env.sessions.err = errors.New("db down")

	issued, err := env.manager.Issue(context.Background(), env.admin)
	if err == nil || issued != nil {
		t.Fatal("no token may be returned when the session row was not written")
	}
}

func TestSessionManager_Validate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issued, _ := env.manager.Issue(ctx, env.admin)
	p, err := env.manager.Validate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.UserID != env.admin.ID || p.Username != testUsername {
		t.Errorf("unexpected principal %+v", p)
	}
}

func TestSessionManager_ValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv, token string)
	}{
		{"revoked", func(env *testEnv, token string) {
			_ = env.manager.Revoke(context.Background(), token)
		}},
		{"expired", func(env *testEnv, _ string) {
			env.clock.Advance(8 * time.Hour)
		}},
		{"inactive user", func(env *testEnv, _ string) {
			_ = env.users.SetActive(context.Background(), env.admin.ID, false)
		}},
		{"missing user", func(env *testEnv, _ string) {
			env.users.delete(env.admin.ID)
		}},
		{"missing row", func(env *testEnv, token string) {
			env.sessions.mu.Lock()
			delete(env.sessions.sessions, HashToken(token))
			env.sessions.mu.Unlock()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			issued, _ := env.manager.Issue(context.Background(), env.admin)
			tt.setup(env, issued.Token)

			_, err := env.manager.Validate(context.Background(), issued.Token)
			if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestSessionManager_ValidateRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := env.manager.Validate(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("token %q: expected ErrInvalidSession, got %v", token, err)
		}
	}
}

func TestSessionManager_ValidateStorageErrorIsNotSilent(t *testing.T) {
	env := newTestEnv(t)
	issued, _ := env.manager.Issue(context.Background(), env.admin)
	env.sessions.err = errors.New("db down")

	_, err := env.manager.Validate(context.Background(), issued.Token)
	if err == nil || errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected a distinguishable storage error, got %v", err)
	}
}

func TestSessionManager_RevokeIsImmediate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	issued, _ := env.manager.Issue(ctx, env.admin)
	if err := env.manager.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := env.manager.Validate(ctx, issued.Token); !errors.Is(err, ErrInvalidSession) {
		t.Error("revoked token must fail validation before its exp claim")
	}
	if err := env.manager.Revoke(ctx, "unknown"); err != nil {
		t.Errorf("revoking an unknown token should be a no-op, got %v", err)
	}
}

func TestSessionManager_RevokeAllForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, _ := env.manager.Issue(ctx, env.admin)
	b, _ := env.manager.Issue(ctx, env.admin)

	n, err := env.manager.RevokeAllForUser(ctx, env.admin.ID)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 revoked, got %d (%v)", n, err)
	}
	for _, tok := range []string{a.Token, b.Token} {
		if _, err := env.manager.Validate(ctx, tok); err == nil {
			t.Error("expected all sessions revoked")
		}
	}
}

func TestSessionManager_PurgeStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	revoked, _ := env.manager.Issue(ctx, env.admin)
	_ = env.manager.Revoke(ctx, revoked.Token)
	env.clock.Advance(time.Hour)
	live, _ := env.manager.Issue(ctx, env.admin)
	env.clock.Advance(7*time.Hour + time.Minute) // first session expired, second alive

	n, err := env.manager.PurgeStale(ctx)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n != 1 || env.sessions.count() != 1 {
		t.Errorf("expected 1 purged and 1 left, got purged=%d left=%d", n, env.sessions.count())
	}
	if _, err := env.manager.Validate(ctx, live.Token); err != nil {
		t.Errorf("live session must survive purge: %v", err)
	}
}
