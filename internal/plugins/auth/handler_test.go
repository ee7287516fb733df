package auth

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// newTestServer mounts the auth routes plus a protected plan route on an
// Echo instance whose error handler renders AppErrors the way the app does.
func newTestServer(t *testing.T, env *testEnv) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
		}
		_ = c.JSON(apperror.SafeCode(err), map[string]string{"message": apperror.SafeMessage(err)})
	}

	requireAuth := RequireAuth(env.service, "Authorization")
	api := e.Group("/api")
	RegisterRoutes(api, NewHandler(env.service), requireAuth, nil)
	api.PUT("/plan/2025-01-13", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"user": GetPrincipal(c).Username})
	}, requireAuth)
	return e
}

func doJSON(e *echo.Echo, method, path, body, token, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHandler_LoginUseLogout(t *testing.T) {
	env := newTestEnv(t)
	e := newTestServer(t, env)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"kat","password":"changeMe123!"}`, "", "10.0.0.5:5000")
	expectStatus(t, rec, http.StatusOK)

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Username != "kat" || resp.User.DisplayName != "Kat" {
		t.Errorf("unexpected user %+v", resp.User)
	}
	if resp.ExpiresIn != int64(8*60*60) {
		t.Errorf("expected expiresIn 28800, got %d", resp.ExpiresIn)
	}

	rec = doJSON(e, http.MethodPut, "/api/plan/2025-01-13", `{}`, resp.Token, "")
	expectStatus(t, rec, http.StatusOK)

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", resp.Token, "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"username":"kat"`) {
		t.Errorf("unexpected /me body %s", rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/auth/logout", "", resp.Token, "")
	expectStatus(t, rec, http.StatusOK)
	if body := strings.TrimSpace(rec.Body.String()); body != `{"success":true}` {
		t.Errorf("unexpected logout body %s", body)
	}

	rec = doJSON(e, http.MethodPut, "/api/plan/2025-01-13", `{}`, resp.Token, "")
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestHandler_ProtectedRouteWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	e := newTestServer(t, env)

	rec := doJSON(e, http.MethodPut, "/api/plan/2025-01-13", `{}`, "", "")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = doJSON(e, http.MethodPut, "/api/plan/2025-01-13", `{}`, "not-a-jwt", "")
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestHandler_LockoutReturnsRetryAfter(t *testing.T) {
	env := newTestEnv(t)
	e := newTestServer(t, env)

	for i := 0; i < 5; i++ {
		rec := doJSON(e, http.MethodPost, "/api/auth/login",
			`{"username":"kat","password":"wrong-password"}`, "", "10.0.0.5:5000")
		expectStatus(t, rec, http.StatusUnauthorized)
		if !strings.Contains(rec.Body.String(), "invalid username or password") {
			t.Errorf("unexpected failure body %s", rec.Body.String())
		}
		env.clock.Advance(20 * time.Second)
	}

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"kat","password":"changeMe123!"}`, "", "10.0.0.5:5000")
	expectStatus(t, rec, http.StatusTooManyRequests)

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After: %v", err)
	}
	// Earliest failure was 100s ago in a 15 minute window.
	if retry != 15*60-100 {
		t.Errorf("expected Retry-After %d, got %d", 15*60-100, retry)
	}
}

func TestHandler_LoginBadBody(t *testing.T) {
	env := newTestEnv(t)
	e := newTestServer(t, env)

	rec := doJSON(e, http.MethodPost, "/api/auth/login", `{"username":`, "", "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"username":"kat"}`, "", "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestHandler_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	e := newTestServer(t, env)

	result, err := env.login(t, testPassword, "10.0.0.5")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rec := doJSON(e, http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"nope-nope","newPassword":"another-pass"}`, result.Token, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = doJSON(e, http.MethodPost, "/api/auth/change-password",
		`{"currentPassword":"changeMe123!","newPassword":"another-pass"}`, result.Token, "")
	expectStatus(t, rec, http.StatusOK)

	if _, err := env.login(t, "another-pass", "10.0.0.5"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}
