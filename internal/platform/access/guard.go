// Package access decides whether a principal may perform an action on a
// resource. Decisions are pure: callers load whatever rows they need and pass
// the ownership in.
package access

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
)

type Reason string

const (
	ReasonAllowed   Reason = "allowed"
	ReasonWrongRole Reason = "wrong_role"
	ReasonNotOwner  Reason = "not_owner"
	ReasonNoProfile Reason = "no_profile"
)

// Ownership identifies the doctor and patient a row belongs to. Zero means
// the row has no owner of that kind.
type Ownership struct {
	DoctorID  int64
	PatientID int64
}

// Decision is the outcome of a check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Err converts a denial into a 403 error. It returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(string(d.Reason), d.Message)
}

var allow = Decision{Allowed: true, Reason: ReasonAllowed}

type Guard struct {
	policy Policy
}

func NewGuard(policy Policy) *Guard {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Guard{policy: policy}
}

// Scope returns the reach of role for the resource action.
func (g *Guard) Scope(role auth.Role, res Resource, act Action) Scope {
	r, ok := g.policy.Rule(res, act)
	if !ok {
		return Deny
	}
	return r.For(role)
}

// Precheck applies the role and linked-profile parts of the policy. It needs
// no row, so it runs before any store access.
func (g *Guard) Precheck(p auth.Principal, res Resource, act Action) Decision {
	switch g.Scope(p.Role, res, act) {
	case Any:
		return allow
	case Own, Self:
		if !p.HasProfile() {
			return Decision{
				Reason:  ReasonNoProfile,
				Message: fmt.Sprintf("no %s profile is linked to this user", profileKind(p.Role)),
			}
		}
		return allow
	default:
		return Decision{
			Reason:  ReasonWrongRole,
			Message: fmt.Sprintf("role %s may not %s %s", p.Role, act, res),
		}
	}
}

// Check is the full decision for an existing row.
func (g *Guard) Check(p auth.Principal, res Resource, act Action, own Ownership) Decision {
	d := g.Precheck(p, res, act)
	if !d.Allowed {
		return d
	}
	if g.Scope(p.Role, res, act) != Own {
		return d
	}
	if !Owns(p, own) {
		return Decision{
			Reason:  ReasonNotOwner,
			Message: fmt.Sprintf("%s is not assigned to the caller", res),
		}
	}
	return allow
}

// Owns reports whether the principal's linked profile owns the row.
func Owns(p auth.Principal, own Ownership) bool {
	if !p.HasProfile() {
		return false
	}
	switch p.Role {
	case auth.RoleDoctor:
		return own.DoctorID == p.ProfileID
	case auth.RolePatient:
		return own.PatientID == p.ProfileID
	default:
		return false
	}
}

// Require is route middleware running Precheck for the resource action.
func (g *Guard) Require(res Resource, act Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.PrincipalFrom(c)
			if !ok {
				return auth.ErrNoCredential
			}
			if err := g.Precheck(p, res, act).Err(); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func profileKind(r auth.Role) string {
	switch r {
	case auth.RoleDoctor:
		return "doctor"
	case auth.RolePatient:
		return "patient"
	default:
		return "user"
	}
}
