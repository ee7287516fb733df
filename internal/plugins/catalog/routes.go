package catalog

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the catalog on the API group. Reads are public so
// the kiosk can render dish details; writes require a session.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	mains := api.Group("/main-dishes")
	mains.GET("", h.ListMainDishes)
	mains.GET("/:id", h.GetMainDish)
	mains.POST("", h.CreateMainDish, requireAuth)
	mains.PUT("/:id", h.UpdateMainDish, requireAuth)
	mains.DELETE("/:id", h.DeleteMainDish, requireAuth)

	sides := api.Group("/side-dishes")
	sides.GET("", h.ListSideDishes)
	sides.GET("/:id", h.GetSideDish)
	sides.POST("", h.CreateSideDish, requireAuth)
	sides.PUT("/:id", h.UpdateSideDish, requireAuth)
	sides.DELETE("/:id", h.DeleteSideDish, requireAuth)
}
