package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for audit log operations. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// listResponse is the JSON shape of GET /api/audit.
type listResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
}

// List returns recent audit entries (GET /api/audit?action=&page=&perPage=).
func (h *Handler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("perPage"))

	entries, total, err := h.service.List(c.Request().Context(), c.QueryParam("action"), page, perPage)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}

	return c.JSON(http.StatusOK, listResponse{Entries: entries, Total: total, Page: max(page, 1)})
}
