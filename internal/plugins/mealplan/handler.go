package mealplan

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Handler serves the meal plan endpoints.
type Handler struct {
	service MealPlanService
}

// NewHandler creates a new meal plan handler.
func NewHandler(service MealPlanService) *Handler {
	return &Handler{service: service}
}

// Range lists plan days (GET /api/meal-plan?startDate=&endDate=).
func (h *Handler) Range(c echo.Context) error {
	days, err := h.service.Range(c.Request().Context(), c.QueryParam("startDate"), c.QueryParam("endDate"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, days)
}

// Today returns today's plan for the kiosk (GET /api/meal-plan/today).
func (h *Handler) Today(c echo.Context) error {
	day, err := h.service.Today(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, day)
}

// ForDate returns one day (GET /api/meal-plan/date/:date).
func (h *Handler) ForDate(c echo.Context) error {
	day, err := h.service.ForDate(c.Request().Context(), c.Param("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, day)
}

// Admin returns the two-week editing view (GET /api/meal-plan/admin).
func (h *Handler) Admin(c echo.Context) error {
	days, err := h.service.AdminView(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, days)
}

// Set stores a day's plan (PUT /api/meal-plan/:date).
func (h *Handler) Set(c echo.Context) error {
	var in SetInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	date := c.Param("date")
	if err := h.service.Set(c.Request().Context(), date, in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setResponse{Success: true, Date: date})
}

// Clear removes a day's plan (DELETE /api/meal-plan/:date).
func (h *Handler) Clear(c echo.Context) error {
	n, err := h.service.Clear(c.Request().Context(), c.Param("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clearResponse{Success: true, Changes: n})
}
