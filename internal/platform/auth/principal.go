package auth

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller of a request. It is derived per
// request and never persisted.
type Principal struct {
	UserID int64
	Role   Role
	// ProfileID is the caller's linked Doctor or Patient id. Zero means no
	// linked profile, which is always the case for admins.
	ProfileID int64
	Email     string
	// TokenID and ExpiresAt are set only in token mode.
	TokenID   string
	ExpiresAt time.Time
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsDoctor() bool  { return p.Role == RoleDoctor }
func (p Principal) IsPatient() bool { return p.Role == RolePatient }

// HasProfile reports whether a linked Doctor or Patient profile was resolved.
func (p Principal) HasProfile() bool { return p.ProfileID > 0 }

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal stored on ctx by the
// authentication middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// SetPrincipal replaces the principal on the request context of c.
func SetPrincipal(c echo.Context, p Principal) {
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
}

// PrincipalFrom is a shorthand for handlers.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	return PrincipalFromContext(c.Request().Context())
}

// CurrentPrincipal returns the caller or ErrNoCredential when the request
// was not authenticated.
func CurrentPrincipal(c echo.Context) (Principal, error) {
	p, ok := PrincipalFrom(c)
	if !ok {
		return Principal{}, ErrNoCredential
	}
	return p, nil
}
