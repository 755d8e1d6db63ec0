package access

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

// ProfileResolver finds the Doctor or Patient profile linked to a user. Both
// methods return 0 and a nil error when no profile is linked.
type ProfileResolver interface {
	DoctorIDByUser(ctx context.Context, userID int64) (int64, error)
	PatientIDByUser(ctx context.Context, userID int64) (int64, error)
}

// Enrich resolves the caller's linked profile once per request and stores it
// on the principal. Requests without a principal pass through untouched.
func Enrich(resolver ProfileResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.PrincipalFrom(c)
			if !ok {
				return next(c)
			}

			enriched, err := EnrichPrincipal(c.Request().Context(), resolver, p)
			if err != nil {
				return err
			}
			auth.SetPrincipal(c, enriched)
			return next(c)
		}
	}
}

// EnrichPrincipal sets ProfileID for doctors and patients.
func EnrichPrincipal(ctx context.Context, resolver ProfileResolver, p auth.Principal) (auth.Principal, error) {
	var (
		id  int64
		err error
	)
	switch p.Role {
	case auth.RoleDoctor:
		id, err = resolver.DoctorIDByUser(ctx, p.UserID)
	case auth.RolePatient:
		id, err = resolver.PatientIDByUser(ctx, p.UserID)
	default:
		return p, nil
	}
	if err != nil {
		return p, apperr.Internal(fmt.Errorf("resolving %s profile for user %d: %w", profileKind(p.Role), p.UserID, err))
	}
	p.ProfileID = id
	return p, nil
}
