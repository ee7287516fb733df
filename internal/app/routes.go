package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/keyxmakerx/mealboard/internal/middleware"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/plugins/catalog"
	"github.com/keyxmakerx/mealboard/internal/plugins/history"
	"github.com/keyxmakerx/mealboard/internal/plugins/mealplan"
)

// healthTimeout bounds the database ping behind /api/health.
const healthTimeout = 2 * time.Second

// healthResponse is the JSON body of GET /api/health.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo
	api := e.Group("/api")

	// --- Public Routes (no auth required) ---

	api.GET("/health", a.health)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	// --- Plugin Routes ---
	// The auth gateway is built once and handed to every plugin.
	requireAuth := auth.RequireAuth(a.Auth, a.Config.Auth.HeaderName)
	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Name:    "login",
		Max:     a.Config.RateLimit.Login,
		Window:  a.Config.RateLimit.Window,
		Store:   a.limiterStore,
		Metrics: a.Metrics,
	})

	auth.RegisterRoutes(api, auth.NewHandler(a.Auth), requireAuth, loginLimit)
	catalog.RegisterRoutes(api, catalog.NewHandler(a.Catalog), requireAuth)
	mealplan.RegisterRoutes(api, mealplan.NewHandler(a.MealPlan), requireAuth)
	history.RegisterRoutes(api, history.NewHandler(a.History), requireAuth)
	audit.RegisterRoutes(api, audit.NewHandler(a.Audit), requireAuth)

	// --- Static front-ends ---
	// Admin and kiosk pages; anything not matched above falls through here.
	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  a.Config.StaticDir,
		Index: "index.html",
		Skipper: func(c echo.Context) bool {
			return isAPIRequest(c)
		},
	}))
}

// health reports liveness plus database reachability (GET /api/health).
func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, healthResponse{Status: status, Timestamp: time.Now().UTC()})
}
