package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

// revokeTokenRequest is the request body for POST /auth/revoke.
type revokeTokenRequest struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    int64     `json:"userId,omitempty"`
}

// revocationListResponse is the response for GET /auth/revocations.
type revocationListResponse struct {
	Count   int              `json:"count"`
	Entries []RevocationInfo `json:"entries"`
}

type revocationLister interface {
	Entries() []RevocationInfo
}

// RegisterRevocationRoutes registers logout and token revocation endpoints on
// the /auth group. They exist only in token mode; header credentials have
// nothing to revoke.
func RegisterRevocationRoutes(g *echo.Group, store RevocationList, ttl time.Duration) {
	g.POST("/logout", handleLogout(store))

	admin := g.Group("", RequireRole(RoleAdmin))
	admin.POST("/revoke", handleRevokeToken(store, ttl))
	if lister, ok := store.(revocationLister); ok {
		admin.GET("/revocations", handleListRevocations(lister))
	}
}

// handleLogout revokes the caller's own token until it expires.
func handleLogout(store RevocationList) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return ErrNoCredential
		}
		if p.TokenID == "" {
			return apperr.BadRequest("current credential is not a revocable token")
		}
		if err := store.Revoke(c.Request().Context(), p.TokenID, p.UserID, p.ExpiresAt); err != nil {
			return apperr.Internal(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// handleRevokeToken revokes a specific token by jti.
func handleRevokeToken(store RevocationList, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req revokeTokenRequest
		if err := c.Bind(&req); err != nil {
			return apperr.BadRequest("invalid request body")
		}
		if req.JTI == "" {
			return apperr.BadRequest("jti is required")
		}
		if req.ExpiresAt.IsZero() {
			// No token outlives the issuer's ttl.
			req.ExpiresAt = time.Now().Add(ttl)
		}

		if err := store.Revoke(c.Request().Context(), req.JTI, req.UserID, req.ExpiresAt); err != nil {
			return apperr.Internal(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// handleListRevocations returns all currently active revocation entries.
func handleListRevocations(store revocationLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries := store.Entries()
		return c.JSON(http.StatusOK, revocationListResponse{
			Count:   len(entries),
			Entries: entries,
		})
	}
}
