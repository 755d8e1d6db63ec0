package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

func TestMiddleware_SetsPrincipal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	req.Header.Set(HeaderUserID, "15")
	req.Header.Set(HeaderUserRole, "Patient")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Principal
	handler := func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			t.Fatal("expected principal on context")
		}
		got = p
		return c.String(http.StatusOK, "ok")
	}

	h := Middleware(NewHeaderAuthenticator(), AuthSkipper)(handler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 15 || got.Role != RolePatient {
		t.Errorf("unexpected principal %+v", got)
	}
}

func TestMiddleware_MissingCredential(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/appointments")

	called := false
	handler := func(c echo.Context) error {
		called = true
		return nil
	}

	a := NewTokenAuthenticator(newTestIssuer(t), nil)
	err := Middleware(a, AuthSkipper)(handler)(c)
	if called {
		t.Fatal("handler must not run without credentials")
	}
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if apperr.KindOf(err).Status() != http.StatusUnauthorized {
		t.Errorf("expected 401 mapping")
	}
	if rec.Header().Get(echo.HeaderWWWAuthenticate) == "" {
		t.Error("expected WWW-Authenticate challenge in token mode")
	}
}

func TestMiddleware_HeaderModeNoChallenge(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Middleware(NewHeaderAuthenticator(), nil)(func(echo.Context) error { return nil })(c)
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if rec.Header().Get(echo.HeaderWWWAuthenticate) != "" {
		t.Error("header mode must not send a bearer challenge")
	}
}

func TestMiddleware_SkipsPublicPaths(t *testing.T) {
	for _, path := range []string{"/health", "/api/auth/login", "/api/auth/register"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath(path)

		called := false
		h := Middleware(NewHeaderAuthenticator(), AuthSkipper)(func(c echo.Context) error {
			called = true
			return nil
		})
		if err := h(c); err != nil {
			t.Errorf("%s: unexpected error: %v", path, err)
		}
		if !called {
			t.Errorf("%s: expected handler to run", path)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := RequireAuth()(func(echo.Context) error { return nil })(c)
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health/db") {
		t.Error("expected /health/db to be public")
	}
	if IsPublicPath("/api/auth/register-by-admin") {
		t.Error("admin registration must require authentication")
	}
}
