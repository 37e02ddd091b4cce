package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schedula/schedula/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.RegisterPatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/search", h.SearchPatient)
	api.GET("/patients/:id", h.GetPatient)

	api.POST("/providers", h.AddProvider)
	api.GET("/providers", h.ListProviders)
	api.GET("/providers/search", h.SearchProviders)
	api.GET("/providers/:id", h.GetProvider)
	api.DELETE("/providers/:id", h.RemoveProvider)
}

// -- Patient Handlers --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), &p); err != nil {
		if errors.Is(err, ErrPatientExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) SearchPatient(c echo.Context) error {
	name := c.QueryParam("name")
	dob := c.QueryParam("dob")
	if name == "" || dob == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and dob query parameters are required")
	}
	p, err := h.svc.ResolvePatient(c.Request().Context(), name, dob)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

// -- Provider Handlers --

func (h *Handler) AddProvider(c echo.Context) error {
	var prov Provider
	if err := c.Bind(&prov); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddProvider(c.Request().Context(), &prov); err != nil {
		if errors.Is(err, ErrProviderExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, prov)
}

func (h *Handler) GetProvider(c echo.Context) error {
	prov, err := h.svc.GetProvider(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, prov)
}

func (h *Handler) SearchProviders(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name query parameter is required")
	}
	pg := pagination.FromContext(c)
	providers, total, err := h.svc.SearchProviders(c.Request().Context(), name, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(providers, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	providers, total, err := h.svc.ListProviders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(providers, total, pg.Limit, pg.Offset))
}

func (h *Handler) RemoveProvider(c echo.Context) error {
	if err := h.svc.RemoveProvider(c.Request().Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrProviderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrProviderInUse):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}
