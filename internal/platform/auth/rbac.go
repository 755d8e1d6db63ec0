package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

// RequireRole returns middleware that checks the principal holds one of the
// given roles. Unlike ownership checks this needs no store access.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	msg := fmt.Sprintf("required role: %s", strings.Join(names, " or "))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return ErrNoCredential
			}
			for _, required := range roles {
				if p.Role == required {
					return next(c)
				}
			}
			return apperr.Forbidden("wrong_role", msg)
		}
	}
}
