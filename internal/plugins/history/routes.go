package history

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the history endpoints; all require a session.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	g := api.Group("/history", requireAuth)
	g.GET("", h.List)
	g.POST("/archive", h.Archive)
	g.POST("/:id/comment", h.Comment)
}
