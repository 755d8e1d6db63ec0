package scheduling

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
	guard *access.Guard
}

func NewHandler(svc *Service, guard *access.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments, h.guard.Require(access.Appointments, access.List))
	api.POST("/appointments", h.CreateAppointment, h.guard.Require(access.Appointments, access.Create))
	api.GET("/appointments/:id", h.GetAppointment, h.guard.Require(access.Appointments, access.Read))
	api.PUT("/appointments/:id", h.UpdateAppointment, h.guard.Require(access.Appointments, access.Update))
	api.DELETE("/appointments/:id", h.DeleteAppointment, h.guard.Require(access.Appointments, access.Delete))

	api.GET("/appointment-statuses", h.ListStatuses, h.guard.Require(access.AppointmentStatuses, access.List))
	api.POST("/appointment-statuses", h.CreateStatus, h.guard.Require(access.AppointmentStatuses, access.Create))
	api.GET("/appointment-statuses/:id", h.GetStatus, h.guard.Require(access.AppointmentStatuses, access.Read))
	api.PUT("/appointment-statuses/:id", h.UpdateStatus, h.guard.Require(access.AppointmentStatuses, access.Update))
	api.DELETE("/appointment-statuses/:id", h.DeleteStatus, h.guard.Require(access.AppointmentStatuses, access.Delete))

	api.POST("/video/appointments/:id/join", h.JoinVideo, h.guard.Require(access.VideoRooms, access.Join))
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

// queryID reads an optional positive integer filter.
func queryID(c echo.Context, name string) (int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid " + name)
	}
	return id, nil
}

// -- Appointment Handlers --

func (h *Handler) ListAppointments(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var f AppointmentFilter
	if f.DoctorID, err = queryID(c, "doctorId"); err != nil {
		return err
	}
	if f.PatientID, err = queryID(c, "patientId"); err != nil {
		return err
	}
	if f.StatusID, err = queryID(c, "statusId"); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetAppointment(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req AppointmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	v, err := h.svc.CreateAppointment(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req AppointmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	v, err := h.svc.UpdateAppointment(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Appointment Status Handlers --

func (h *Handler) ListStatuses(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListStatuses(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetStatus(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	st, err := h.svc.GetStatus(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) CreateStatus(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	st, err := h.svc.CreateStatus(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	st, err := h.svc.UpdateStatus(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStatus(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteStatus(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Video --

func (h *Handler) JoinVideo(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	join, err := h.svc.JoinVideo(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, join)
}
