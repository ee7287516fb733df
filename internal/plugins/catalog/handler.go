package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Handler serves the dish catalog endpoints.
type Handler struct {
	service CatalogService
}

// NewHandler creates a new catalog handler.
func NewHandler(service CatalogService) *Handler {
	return &Handler{service: service}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewBadRequest("invalid dish id")
	}
	return id, nil
}

// ListMainDishes returns every main dish ordered by name (GET /api/main-dishes).
func (h *Handler) ListMainDishes(c echo.Context) error {
	dishes, err := h.service.ListMainDishes(c.Request().Context())
	if err != nil {
		return err
	}
	if dishes == nil {
		dishes = []MainDish{}
	}
	return c.JSON(http.StatusOK, dishes)
}

// GetMainDish returns one main dish (GET /api/main-dishes/:id).
func (h *Handler) GetMainDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.service.GetMainDish(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// CreateMainDish adds a main dish (POST /api/main-dishes).
func (h *Handler) CreateMainDish(c echo.Context) error {
	var in MainDishInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	id, err := h.service.CreateMainDish(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, createdResponse{Success: true, ID: id})
}

// UpdateMainDish replaces a main dish's fields (PUT /api/main-dishes/:id).
func (h *Handler) UpdateMainDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in MainDishInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	n, err := h.service.UpdateMainDish(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changedResponse{Success: true, Changes: n})
}

// DeleteMainDish removes a main dish (DELETE /api/main-dishes/:id).
func (h *Handler) DeleteMainDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.service.DeleteMainDish(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changedResponse{Success: true, Changes: n})
}

// ListSideDishes returns every side dish ordered by name (GET /api/side-dishes).
func (h *Handler) ListSideDishes(c echo.Context) error {
	dishes, err := h.service.ListSideDishes(c.Request().Context())
	if err != nil {
		return err
	}
	if dishes == nil {
		dishes = []SideDish{}
	}
	return c.JSON(http.StatusOK, dishes)
}

// GetSideDish returns one side dish (GET /api/side-dishes/:id).
func (h *Handler) GetSideDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.service.GetSideDish(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// CreateSideDish adds a side dish (POST /api/side-dishes).
func (h *Handler) CreateSideDish(c echo.Context) error {
	var in SideDishInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	id, err := h.service.CreateSideDish(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, createdResponse{Success: true, ID: id})
}

// UpdateSideDish replaces a side dish's fields (PUT /api/side-dishes/:id).
func (h *Handler) UpdateSideDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in SideDishInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	n, err := h.service.UpdateSideDish(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changedResponse{Success: true, Changes: n})
}

// DeleteSideDish removes a side dish (DELETE /api/side-dishes/:id).
func (h *Handler) DeleteSideDish(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.service.DeleteSideDish(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changedResponse{Success: true, Changes: n})
}
