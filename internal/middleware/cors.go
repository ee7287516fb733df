package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. Use ["*"] to allow all (not recommended for production).
	AllowedOrigins []string

	// AuthHeader is the request header carrying the bearer token. It is
	// added to the preflight allow list.
	AuthHeader string
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers
// for the JSON API. The bundled front-ends are same-origin; this exists for
// a kiosk served from another host on the LAN.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}
	if allowAll {
		slog.Warn("CORS allows every origin; set explicit origins in production")
	}

	allowHeaders := []string{"Content-Type", echo.HeaderAuthorization, RequestIDHeader}
	if cfg.AuthHeader != "" && !strings.EqualFold(cfg.AuthHeader, echo.HeaderAuthorization) {
		allowHeaders = append(allowHeaders, cfg.AuthHeader)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get("Origin")

			// No Origin header means same-origin request -- skip CORS.
			if origin == "" {
				return next(c)
			}
			if !allowAll && !originSet[origin] {
				// The browser will block the response on the client side.
				return next(c)
			}

			res.Header().Set("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")

			if req.Method == http.MethodOptions {
				res.Header().Set("Access-Control-Allow-Methods",
					strings.Join([]string{
						http.MethodGet,
						http.MethodPost,
						http.MethodPut,
						http.MethodDelete,
						http.MethodOptions,
					}, ", "))
				res.Header().Set("Access-Control-Allow-Headers", strings.Join(allowHeaders, ", "))
				res.Header().Set("Access-Control-Max-Age", "3600")
				return c.NoContent(http.StatusNoContent)
			}

			// Let the front-end read the lockout hint and correlation ID.
			res.Header().Set("Access-Control-Expose-Headers",
				strings.Join([]string{"Retry-After", RequestIDHeader}, ", "))

			return next(c)
		}
	}
}
