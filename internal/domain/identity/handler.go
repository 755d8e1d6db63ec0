package identity

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/pkg/pagination"
)

type Handler struct {
	svc   *Service
	auth  *AuthService
	guard *access.Guard
}

func NewHandler(svc *Service, authSvc *AuthService, guard *access.Guard) *Handler {
	return &Handler{svc: svc, auth: authSvc, guard: guard}
}

// RegisterRoutes mounts the identity endpoints under api (the /api group).
// Login and register are public; the auth skipper lets them through.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/register", h.Register)
	authGroup.POST("/register-by-admin", h.RegisterByAdmin, h.guard.Require(access.Users, access.Create))
	authGroup.GET("/me", h.Me, auth.RequireAuth())

	api.GET("/users", h.ListUsers, h.guard.Require(access.Users, access.List))
	api.GET("/users/:id", h.GetUser, h.guard.Require(access.Users, access.Read))

	api.GET("/specialties", h.ListSpecialties, h.guard.Require(access.Specialties, access.List))
	api.POST("/specialties", h.CreateSpecialty, h.guard.Require(access.Specialties, access.Create))
	api.GET("/specialties/:id", h.GetSpecialty, h.guard.Require(access.Specialties, access.Read))
	api.PUT("/specialties/:id", h.UpdateSpecialty, h.guard.Require(access.Specialties, access.Update))
	api.DELETE("/specialties/:id", h.DeleteSpecialty, h.guard.Require(access.Specialties, access.Delete))

	api.GET("/doctors", h.ListDoctors, h.guard.Require(access.Doctors, access.List))
	api.POST("/doctors", h.CreateDoctor, h.guard.Require(access.Doctors, access.Create))
	api.GET("/doctors/:id", h.GetDoctor, h.guard.Require(access.Doctors, access.Read))
	api.PUT("/doctors/:id", h.UpdateDoctor, h.guard.Require(access.Doctors, access.Update))
	api.DELETE("/doctors/:id", h.DeleteDoctor, h.guard.Require(access.Doctors, access.Delete))

	api.GET("/patients", h.ListPatients, h.guard.Require(access.Patients, access.List))
	api.POST("/patients", h.CreatePatient, h.guard.Require(access.Patients, access.Create))
	api.GET("/patients/:id", h.GetPatient, h.guard.Require(access.Patients, access.Read))
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid " + name)
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return c.Validate(req)
}

// -- Auth Handlers --

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) RegisterByAdmin(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.auth.RegisterByAdmin(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// -- User Handlers --

func (h *Handler) ListUsers(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetUser(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// -- Specialty Handlers --

func (h *Handler) ListSpecialties(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSpecialties(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSpecialty(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sp, err := h.svc.GetSpecialty(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) CreateSpecialty(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req SpecialtyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sp, err := h.svc.CreateSpecialty(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) UpdateSpecialty(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req SpecialtyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sp, err := h.svc.UpdateSpecialty(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) DeleteSpecialty(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSpecialty(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doctor Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req DoctorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req DoctorUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	pt, err := h.svc.GetPatient(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pt)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req PatientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	pt, err := h.svc.CreatePatient(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pt)
}
