package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

type stubValidator struct {
	principal *Principal
	err       error
	got       string
}

func (v *stubValidator) ValidateSession(_ context.Context, token string) (*Principal, error) {
	v.got = token
	return v.principal, v.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"Bearer a b", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		if ok != tt.ok || token != tt.token {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func runGateway(t *testing.T, v SessionValidator, header, value string) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/plan", nil)
	if value != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen echo.Context
	h := RequireAuth(v, header)(func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusOK)
	})
	return rec, seen, h(c)
}

func TestRequireAuth_AttachesPrincipal(t *testing.T) {
	v := &stubValidator{principal: &Principal{UserID: "u-1", Username: "kat"}}

	rec, c, err := runGateway(t, v, "Authorization", "Bearer tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("next handler should run")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if v.got != "tok" {
		t.Errorf("validator got token %q", v.got)
	}

	if GetUserID(c) != "u-1" || GetToken(c) != "tok" {
		t.Errorf("unexpected getters: user=%q token=%q", GetUserID(c), GetToken(c))
	}
	p := PrincipalFromContext(c.Request().Context())
	if p == nil || p.Username != "kat" {
		t.Fatalf("unexpected request principal %+v", p)
	}
}

func TestRequireAuth_StampsClientIP(t *testing.T) {
	shared := &Principal{UserID: "u-1", Username: "kat"}
	v := &stubValidator{principal: shared}

	_, c, err := runGateway(t, v, "Authorization", "Bearer tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// httptest requests come from 192.0.2.1.
	if p := GetPrincipal(c); p == nil || p.IPAddress != "192.0.2.1" {
		t.Errorf("echo principal IP = %+v", p)
	}
	if p := PrincipalFromContext(c.Request().Context()); p == nil || p.IPAddress != "192.0.2.1" {
		t.Errorf("request principal IP = %+v", p)
	}
	if shared.IPAddress != "" {
		t.Errorf("validator principal was mutated: %+v", shared)
	}
}

func TestRequireAuth_CustomHeader(t *testing.T) {
	v := &stubValidator{principal: &Principal{UserID: "u-1", Username: "kat"}}

	if _, _, err := runGateway(t, v, "X-Meal-Auth", "Bearer tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value string
		v     *stubValidator
	}{
		{"missing header", "", &stubValidator{}},
		{"wrong scheme", "Token tok", &stubValidator{}},
		{"invalid session", "Bearer tok", &stubValidator{err: ErrInvalidSession}},
		{"storage error", "Bearer tok", &stubValidator{err: errors.New("db down")}},
		{"nil principal", "Bearer tok", &stubValidator{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c, err := runGateway(t, tt.v, "Authorization", tt.value)
			if c != nil {
				t.Error("next handler must not run")
			}
			if code := apperror.SafeCode(err); code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", code)
			}
			if msg := apperror.SafeMessage(err); msg != "unauthorized" {
				t.Errorf("expected bare unauthorized, got %q", msg)
			}
		})
	}
}

func TestGetters_Unauthenticated(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if GetPrincipal(c) != nil || GetUserID(c) != "" || GetToken(c) != "" {
		t.Error("expected empty getters on an unauthenticated request")
	}
	if PrincipalFromContext(context.Background()) != nil {
		t.Error("expected no principal in a bare context")
	}
}
