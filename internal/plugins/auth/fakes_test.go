package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
)

// --- In-memory fakes ---
// These behave like the MariaDB repositories closely enough to exercise
// whole flows (login, throttle, revocation) without a database.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*User // by ID
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return errors.New("Duplicate entry for key 'uq_users_username'")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user not found")
}

func (r *fakeUserRepo) List(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperror.NewNotFound("user not found")
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (r *fakeUserRepo) get(id string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *fakeUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*Session // by token hash
	users    *fakeUserRepo
	err      error
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*Session), users: users}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *s
	r.sessions[s.TokenHash] = &cp
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, hash string) (*SessionLookup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.sessions[hash]
	if !ok {
		return nil, apperror.NewNotFound("session not found")
	}
	l := &SessionLookup{Session: *s}
	if u := r.users.get(s.UserID); u != nil {
		l.Username = u.Username
		l.UserActive = u.IsActive
	}
	return l, nil
}

func (r *fakeSessionRepo) RevokeByTokenHash(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[hash]
	if ok {
		s.Revoked = true
	}
	return ok, nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) DeleteStale(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if s.Revoked || !s.ExpiresAt.After(now) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []LoginAttempt
	err      error
}

func (r *fakeAttemptRepo) Record(_ context.Context, a *LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	// login_attempts.username is VARCHAR(100); strict mode rejects more.
	if utf8.RuneCountInString(a.Username) > 100 {
		return &mysql.MySQLError{Number: 1406, Message: "Data too long for column 'username' at row 1"}
	}
	a.ID = int64(len(r.attempts) + 1)
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *fakeAttemptRepo) failures(match func(LoginAttempt) bool, since time.Time) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, a := range r.attempts {
		if !a.Success && match(a) && a.AttemptedAt.After(since) {
			out = append(out, a.AttemptedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (r *fakeAttemptRepo) FailuresByUsername(_ context.Context, username string, since time.Time) ([]time.Time, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.failures(func(a LoginAttempt) bool { return a.Username == username }, since), nil
}

func (r *fakeAttemptRepo) FailuresByIP(_ context.Context, ip string, since time.Time) ([]time.Time, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.failures(func(a LoginAttempt) bool { return a.IPAddress == ip }, since), nil
}

func (r *fakeAttemptRepo) Recent(_ context.Context, since time.Time, limit int) ([]LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LoginAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.attempts[i].AttemptedAt.After(since) {
			out = append(out, r.attempts[i])
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) DeleteForUsername(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	var n int64
	for _, a := range r.attempts {
		if a.Username == username {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return n, nil
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *fakeAudit) Log(_ context.Context, e *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- Harness ---

const (
	testUsername = "kat"
	testPassword = "changeMe123!"
	testSecret   = "test-secret-key-at-least-32-bytes-long"
)

type testEnv struct {
	clock    *fakeClock
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	attempts *fakeAttemptRepo
	audit    *fakeAudit
	creds    *CredentialStore
	throttle *Throttle
	signer   *TokenSigner
	manager  *SessionManager
	service  AuthService
	admin    *User
}

// newTestEnv wires every auth component over in-memory fakes sharing one
// clock, and seeds the administrator.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:    newFakeClock(),
		users:    newFakeUserRepo(),
		attempts: &fakeAttemptRepo{},
		audit:    &fakeAudit{},
	}
	env.sessions = newFakeSessionRepo(env.users)

	env.creds = NewCredentialStore(env.users)
	env.creds.hashCost = bcrypt.MinCost
	env.creds.now = env.clock.Now

	env.throttle = NewThrottle(env.attempts, 5, 15*time.Minute)
	env.throttle.now = env.clock.Now

	env.signer = NewTokenSigner(testSecret, 8*time.Hour)
	env.signer.now = env.clock.Now

	env.manager = NewSessionManager(env.sessions, env.signer)
	env.manager.now = env.clock.Now

	svc := NewAuthService(Deps{
		Users:       env.users,
		Attempts:    env.attempts,
		Credentials: env.creds,
		Throttle:    env.throttle,
		Sessions:    env.manager,
		Audit:       env.audit,
	})
	svc.(*authService).now = env.clock.Now
	env.service = svc

	admin, err := env.creds.EnsureAdmin(context.Background(), AdminSeed{
		Username:    testUsername,
		DisplayName: "Kat",
		Password:    testPassword,
	})
	if err != nil {
		t.Fatalf("seeding admin: %v", err)
	}
	env.admin = admin
	return env
}

func (e *testEnv) login(t *testing.T, password, ip string) (*LoginResult, error) {
	t.Helper()
	return e.service.Login(context.Background(), LoginInput{Username: testUsername, Password: password, IP: ip})
}

// assertAppError checks that err is an AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError with code %d, got %T: %v", expectedCode, err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status code %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}
