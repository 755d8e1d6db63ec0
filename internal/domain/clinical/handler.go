package clinical

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
	mr := api.Group("/medical-records")
	mr.GET("/patient/:patientId", h.GetRecordByPatient, h.guard.Require(access.MedicalRecords, access.Read))
	mr.POST("", h.CreateRecord, h.guard.Require(access.MedicalRecords, access.Create))
	mr.PUT("/:id", h.UpdateRecord, h.guard.Require(access.MedicalRecords, access.Update))
	mr.GET("/:id/history", h.ListRecordHistory, h.guard.Require(access.ClinicalHistory, access.Read))

	ch := api.Group("/clinical-history")
	ch.GET("/record/:recordId", h.ListHistoryByRecord, h.guard.Require(access.ClinicalHistory, access.Read))
	ch.GET("/:id", h.GetHistory, h.guard.Require(access.ClinicalHistory, access.Read))
	ch.POST("", h.CreateHistory, h.guard.Require(access.ClinicalHistory, access.Create))
	ch.PUT("/:id", h.UpdateHistory, h.guard.Require(access.ClinicalHistory, access.Update))
	ch.DELETE("/:id", h.DeleteHistory, h.guard.Require(access.ClinicalHistory, access.Delete))
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

// -- Medical Record Handlers --

func (h *Handler) GetRecordByPatient(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	rec, err := h.svc.GetRecordByPatient(c.Request().Context(), p, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req MedicalRecordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rec, err := h.svc.CreateRecord(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req MedicalRecordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rec, err := h.svc.UpdateRecord(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecordHistory(c echo.Context) error {
	return h.listHistory(c, "id")
}

// -- Clinical History Handlers --

func (h *Handler) ListHistoryByRecord(c echo.Context) error {
	return h.listHistory(c, "recordId")
}

func (h *Handler) listHistory(c echo.Context, param string) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	recordID, err := parseID(c, param)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHistory(c.Request().Context(), p, recordID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetHistory(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	entry, err := h.svc.GetHistory(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) CreateHistory(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	var req ClinicalHistoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.svc.CreateHistory(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) UpdateHistory(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req ClinicalHistoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.svc.UpdateHistory(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteHistory(c echo.Context) error {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteHistory(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
