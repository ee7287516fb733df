package history

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Handler serves the history endpoints.
type Handler struct {
	service HistoryService
}

// NewHandler creates a new history handler.
func NewHandler(service HistoryService) *Handler {
	return &Handler{service: service}
}

// List returns archived days (GET /api/history?from=&to=).
func (h *Handler) List(c echo.Context) error {
	entries, err := h.service.List(c.Request().Context(), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Comment sets an entry's comment (POST /api/history/:id/comment).
func (h *Handler) Comment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return apperror.NewBadRequest("invalid history id")
	}
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	n, err := h.service.Comment(c.Request().Context(), id, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changedResponse{Success: true, Changes: n})
}

// Archive runs an archival pass now (POST /api/history/archive).
func (h *Handler) Archive(c echo.Context) error {
	result, err := h.service.Archive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
