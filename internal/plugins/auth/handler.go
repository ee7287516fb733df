package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Handler handles HTTP requests for authentication (login, logout,
// change-password). Handlers are thin: they bind the request, call the
// service, and render the response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Login authenticates a username and password (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       c.RealIP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: result.Token,
		User: loginUser{
			Username:    result.User.Username,
			DisplayName: result.User.DisplayName,
		},
		ExpiresIn: int64(result.ExpiresIn.Seconds()),
	})
}

// Logout revokes the caller's session (POST /api/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	token := GetToken(c)
	if token == "" {
		return apperror.NewMissingContext()
	}

	if err := h.service.Logout(c.Request().Context(), GetPrincipal(c), token, c.RealIP()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// ChangePassword changes the caller's password (POST /api/auth/change-password).
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	err := h.service.ChangePassword(c.Request().Context(), GetPrincipal(c),
		req.CurrentPassword, req.NewPassword, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Me returns the authenticated principal (GET /api/auth/me).
func (h *Handler) Me(c echo.Context) error {
	p := GetPrincipal(c)
	if p == nil {
		return apperror.NewMissingContext()
	}
	return c.JSON(http.StatusOK, p)
}
