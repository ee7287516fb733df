package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the auth routes under /auth on the API group.
// Login is public but passes through loginLimit, the per-IP transport
// limiter, before the username/ip throttle in the service. The remaining
// routes require a valid session.
func RegisterRoutes(api *echo.Group, h *Handler, requireAuth, loginLimit echo.MiddlewareFunc) {
	g := api.Group("/auth")

	var loginMW []echo.MiddlewareFunc
	if loginLimit != nil {
		loginMW = append(loginMW, loginLimit)
	}
	g.POST("/login", h.Login, loginMW...)

	g.POST("/logout", h.Logout, requireAuth)
	g.POST("/change-password", h.ChangePassword, requireAuth)
	g.GET("/me", h.Me, requireAuth)
}
