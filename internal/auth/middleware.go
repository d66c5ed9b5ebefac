package auth

import (
	"github.com/labstack/echo/v4"
)

// contextKeyPrincipal is the Echo context key holding the authenticated
// Principal. Other packages access it via GetPrincipal/SetPrincipal.
const contextKeyPrincipal = "auth_principal"

// RequireAuth returns middleware that authenticates the Authorization header
// and injects the resolved Principal into the request context. Requests that
// fail any authentication step are rejected with the corresponding typed 401
// before the handler runs.
func RequireAuth(service Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, err := service.Authenticate(
				c.Request().Context(),
				c.Request().Header.Get("Authorization"),
			)
			if err != nil {
				return err
			}

			SetPrincipal(c, principal)
			return next(c)
		}
	}
}

// SetPrincipal stores the authenticated principal in the Echo context.
func SetPrincipal(c echo.Context, p *Principal) {
	c.Set(contextKeyPrincipal, p)
}

// GetPrincipal retrieves the authenticated principal from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(contextKeyPrincipal).(*Principal)
	if !ok {
		return nil
	}
	return p
}
