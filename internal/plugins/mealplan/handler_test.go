package mealplan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// stubService records Set/Clear calls and serves fixed days.
type stubService struct {
	days    []Day
	setDate string
	setIn   SetInput
	setErr  error
	cleared int64
}

func (s *stubService) Range(_ context.Context, start, end string) ([]Day, error) {
	if start == "bad" {
		return nil, apperror.NewBadRequest("startDate must be YYYY-MM-DD")
	}
	return s.days, nil
}

func (s *stubService) Today(context.Context) (*Day, error) { return &s.days[0], nil }

func (s *stubService) ForDate(_ context.Context, date string) (*Day, error) {
	return &Day{Date: date}, nil
}

func (s *stubService) AdminView(context.Context) ([]Day, error) { return s.days, nil }

func (s *stubService) Set(_ context.Context, date string, in SetInput) error {
	s.setDate, s.setIn = date, in
	return s.setErr
}

func (s *stubService) Clear(context.Context, string) (int64, error) { return s.cleared, nil }

func newPlanEcho(svc MealPlanService, requireAuth echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.JSON(apperror.SafeCode(err), map[string]string{"message": apperror.SafeMessage(err)})
	}
	RegisterRoutes(e.Group("/api"), NewHandler(svc), requireAuth)
	return e
}

func allowAll(next echo.HandlerFunc) echo.HandlerFunc { return next }

func denyAll(echo.HandlerFunc) echo.HandlerFunc {
	return func(echo.Context) error { return apperror.NewUnauthorized("unauthorized") }
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectJSON(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("expected body %s, got %s", want, got)
	}
}

func TestHandler_SetPassesBody(t *testing.T) {
	svc := &stubService{}
	e := newPlanEcho(svc, allowAll)

	body := `{"main_dish_id":4,"side_dish_ids":"1,2","eating_out":false}`
	req := httptest.NewRequest(http.MethodPut, "/api/meal-plan/2025-01-15", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"success":true,"date":"2025-01-15"}`)
	if svc.setDate != "2025-01-15" {
		t.Errorf("expected date 2025-01-15, got %q", svc.setDate)
	}
	if svc.setIn.MainDishID == nil || *svc.setIn.MainDishID != 4 {
		t.Errorf("expected main dish 4, got %v", svc.setIn.MainDishID)
	}
	if svc.setIn.SideDishIDs != "1,2" {
		t.Errorf("expected side ids 1,2, got %q", svc.setIn.SideDishIDs)
	}
}

func TestHandler_SetBadBody(t *testing.T) {
	e := newPlanEcho(&stubService{}, allowAll)

	req := httptest.NewRequest(http.MethodPut, "/api/meal-plan/2025-01-15", strings.NewReader(`{"main_dish_id":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusBadRequest)
}

func TestHandler_ClearReportsChanges(t *testing.T) {
	e := newPlanEcho(&stubService{cleared: 1}, allowAll)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/meal-plan/2025-01-15", nil))

	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"success":true,"changes":1}`)
}

func TestHandler_KioskReadsArePublic(t *testing.T) {
	svc := &stubService{days: []Day{{Date: "2025-01-15", EatingOut: true, EatingOutLocation: "Thai Palace"}}}
	e := newPlanEcho(svc, denyAll)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meal-plan/today", nil))
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"eating_out_location":"Thai Palace"`) {
		t.Errorf("unexpected today body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meal-plan?startDate=2025-01-13&endDate=2025-01-19", nil))
	expectStatus(t, rec, http.StatusOK)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meal-plan/date/2025-01-15", nil))
	expectStatus(t, rec, http.StatusOK)
}

func TestHandler_WritesAndAdminViewRequireAuth(t *testing.T) {
	svc := &stubService{days: []Day{{Date: "2025-01-15"}}}
	e := newPlanEcho(svc, denyAll)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/meal-plan/admin"},
		{http.MethodPut, "/api/meal-plan/2025-01-15"},
		{http.MethodDelete, "/api/meal-plan/2025-01-15"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, strings.NewReader(`{}`)))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", r.method, r.path, rec.Code)
		}
	}
	if svc.setDate != "" {
		t.Errorf("write reached the service: %q", svc.setDate)
	}
}

func TestHandler_RangeBadDate(t *testing.T) {
	e := newPlanEcho(&stubService{}, allowAll)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/meal-plan?startDate=bad", nil))
	expectStatus(t, rec, http.StatusBadRequest)
}
