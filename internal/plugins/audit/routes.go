package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the audit listing on the API group. requireAuth is
// the auth gateway middleware; the listing is admin-only.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth echo.MiddlewareFunc) {
	api.GET("/audit", h.List, requireAuth)
}
