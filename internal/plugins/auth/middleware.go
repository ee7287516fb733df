package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Context keys for storing the principal in Echo context. Other plugins
// use the exported getter functions below to read them.
const (
	contextKeyPrincipal = "auth_principal"
	contextKeyToken     = "auth_token"
)

// principalKey keys the principal in a request context.Context.
type principalKey struct{}

// SessionValidator resolves a raw bearer token to a principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*Principal, error)
}

// RequireAuth returns the auth gateway: middleware that reads
// "Bearer <token>" from headerName, validates it, and attaches the
// principal, stamped with the client IP, to both the Echo context and the
// request context. Every failure is the same bare 401.
func RequireAuth(validator SessionValidator, headerName string) echo.MiddlewareFunc {
	if headerName == "" {
		headerName = echo.HeaderAuthorization
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(headerName))
			if !ok {
				return apperror.NewUnauthorized("unauthorized")
			}

			principal, err := validator.ValidateSession(c.Request().Context(), token)
			if err != nil || principal == nil {
				return apperror.NewUnauthorized("unauthorized")
			}

			// Copy so the validator's value is never mutated.
			scoped := *principal
			scoped.IPAddress = c.RealIP()
			principal = &scoped

			c.Set(contextKeyPrincipal, principal)
			c.Set(contextKeyToken, token)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), principal)))

			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// style value. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// --- Exported getters for other plugins ---

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return ""
}

// GetToken returns the raw bearer token of an authenticated request.
func GetToken(c echo.Context) string {
	token, _ := c.Get(contextKeyToken).(string)
	return token
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by RequireAuth, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
