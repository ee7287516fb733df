package mealplan

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the plan on the API group. Reads used by the kiosk
// are public; the admin view and writes require a session.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	g := api.Group("/meal-plan")
	g.GET("", h.Range)
	g.GET("/today", h.Today)
	g.GET("/date/:date", h.ForDate)
	g.GET("/admin", h.Admin, requireAuth)
	g.PUT("/:date", h.Set, requireAuth)
	g.DELETE("/:date", h.Clear, requireAuth)
}
