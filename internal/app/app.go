// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance, metrics) and wires together all plugins.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/config"
	"github.com/keyxmakerx/mealboard/internal/metrics"
	"github.com/keyxmakerx/mealboard/internal/middleware"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/plugins/catalog"
	"github.com/keyxmakerx/mealboard/internal/plugins/history"
	"github.com/keyxmakerx/mealboard/internal/plugins/mealplan"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis backs the rate limit counters. Nil when not configured.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Metrics is the Prometheus registry served at /metrics.
	Metrics *metrics.Metrics

	// Services, exposed for main (admin seeding, archiver lifecycle).
	Audit    audit.AuditService
	Auth     auth.AuthService
	Catalog  catalog.CatalogService
	MealPlan mealplan.MealPlanService
	History  history.HistoryService
	Archiver *history.Archiver

	limiterStore middleware.CounterStore
}

// New creates a new App instance with the given dependencies, wires the
// plugin services, and configures the Echo server with global middleware
// and error handling. rdb may be nil.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() feeds the login throttle and the rate limiters, so it must
	// resolve the client behind the reverse proxy.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Echo:    e,
		Metrics: metrics.New(),
	}

	if rdb != nil {
		app.limiterStore = middleware.NewRedisStore(rdb)
	} else {
		app.limiterStore = middleware.NewMemoryStore()
	}

	app.wireServices()

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// wireServices builds every plugin's repository and service.
func (a *App) wireServices() {
	a.Audit = audit.NewAuditService(audit.NewAuditRepository(a.DB))

	users := auth.NewUserRepository(a.DB)
	attempts := auth.NewAttemptRepository(a.DB)
	a.Auth = auth.NewAuthService(auth.Deps{
		Users:       users,
		Attempts:    attempts,
		Credentials: auth.NewCredentialStore(users),
		Throttle:    auth.NewThrottle(attempts, a.Config.Auth.MaxFailures, a.Config.Auth.FailureWindow),
		Sessions: auth.NewSessionManager(
			auth.NewSessionRepository(a.DB),
			auth.NewTokenSigner(a.Config.Auth.SecretKey, a.Config.Auth.SessionTTL),
		),
		Audit:   a.Audit,
		Metrics: a.Metrics,
	})

	a.Catalog = catalog.NewCatalogService(catalog.NewCatalogRepository(a.DB), a.Audit)
	a.MealPlan = mealplan.NewMealPlanService(mealplan.NewMealPlanRepository(a.DB), a.Catalog, a.Audit, a.Config.Timezone)

	historyRepo := history.NewHistoryRepository(a.DB)
	a.Archiver = history.NewArchiver(history.ArchiverConfig{
		Repo:       historyRepo,
		Location:   a.Config.Timezone,
		StartDelay: a.Config.Archive.StartDelay,
		Interval:   a.Config.Archive.Interval,
		Sessions:   a.Auth,
		Audit:      a.Audit,
		Metrics:    a.Metrics,
	})
	a.History = history.NewHistoryService(historyRepo, a.Archiver, a.Audit, a.Config.Timezone)
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- only relevant for a kiosk served from another origin.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.BaseURL},
		AuthHeader:     a.Config.Auth.HeaderName,
	}))

	// API-wide per-IP limit on every route.
	a.Echo.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Name:    "api",
		Max:     a.Config.RateLimit.API,
		Window:  a.Config.RateLimit.Window,
		Store:   a.limiterStore,
		Metrics: a.Metrics,
	}))
}

// errorResponse is the JSON body of every API error.
type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to HTTP responses: JSON for /api, plain text otherwise.
// Throttle and rate limit errors carry a Retry-After header in seconds.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"
	retryAfter := 0

	// Check if it's our domain error type.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
		if appErr.RetryAfter > 0 {
			retryAfter = int(math.Ceil(appErr.RetryAfter.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			} else {
				message = defaultErrorMessage(code)
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
		}
	}

	// API requests always get JSON.
	if isAPIRequest(c) {
		_ = c.JSON(code, errorResponse{
			Error:      http.StatusText(code),
			Message:    message,
			RetryAfter: retryAfter,
		})
		return
	}

	_ = c.String(code, message)
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "The requested resource does not exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusRequestEntityTooLarge:
		return "The request body is too large."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Mealboard server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
