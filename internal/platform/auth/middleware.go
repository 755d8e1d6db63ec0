package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Middleware authenticates every request not matched by skipper and stores
// the resulting Principal on the request context. Failures are returned as
// 401 errors; there is no anonymous fallback.
func Middleware(a Authenticator, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			p, err := a.Authenticate(c.Request())
			if err != nil {
				if ch := a.Challenge(); ch != "" {
					c.Response().Header().Set(echo.HeaderWWWAuthenticate, ch)
				}
				return err
			}

			SetPrincipal(c, p)
			c.Set("user_id", p.UserID)
			return next(c)
		}
	}
}

// RequireAuth rejects requests that reached a handler without a principal.
// It guards route groups mounted outside Middleware's reach.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFrom(c); !ok {
				return ErrNoCredential
			}
			return next(c)
		}
	}
}
