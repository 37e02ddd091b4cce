package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schedula/schedula/internal/domain/identity"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Book)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id/reschedule", h.Reschedule)
	api.DELETE("/appointments/:id", h.Cancel)
	api.GET("/patients/:id/appointments", h.ListPatientAppointments)
	api.GET("/providers/:id/appointments", h.ListProviderAppointments)
}

// httpStatus maps scheduling errors onto response codes; anything unknown
// gets the handler's fallback.
func httpStatus(err error, fallback int) int {
	switch {
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, identity.ErrPatientNotFound),
		errors.Is(err, identity.ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSlotAlreadyBooked):
		return http.StatusConflict
	default:
		return fallback
	}
}

func (h *Handler) Book(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.Book(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusBadRequest), err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusInternalServerError), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.Reschedule(c.Request().Context(), id, req.Date, req.Time)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusBadRequest), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

// Cancel responds 200 with the cancelled record, not 204.
func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	appt, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusInternalServerError), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	appts, err := h.svc.ListForPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusInternalServerError), err.Error())
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) ListProviderAppointments(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
	}
	if _, err := time.Parse(identity.DateLayout, date); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be in YYYY-MM-DD form")
	}

	appts, err := h.svc.ListActiveForProvider(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err, http.StatusInternalServerError), err.Error())
	}
	return c.JSON(http.StatusOK, appts)
}
