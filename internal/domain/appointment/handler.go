package appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)
	api.POST("/appointments/:id/complete", h.CompleteAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
	api.GET("/users/:id/appointments", h.ListUserAppointments)
	api.GET("/users/:id/appointments/upcoming", h.ListUpcoming)
}

func httpError(err error, fallback int) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(fallback, err.Error())
}

func (h *Handler) load(c echo.Context, write bool) (*Appointment, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, httpError(err, http.StatusInternalServerError)
	}
	if write {
		err = auth.RequireWrite(c.Request().Context(), a.UserID)
	} else {
		err = auth.RequireRead(c.Request().Context(), a.UserID)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AppointmentView adds display strings for the mobile app.
type AppointmentView struct {
	*Appointment
	Date string `json:"date"`
	Time string `json:"time"`
}

func view(a *Appointment) AppointmentView {
	return AppointmentView{Appointment: a, Date: a.FormattedDate(), Time: a.FormattedTime()}
}

func views(items []*Appointment) []AppointmentView {
	out := make([]AppointmentView, len(items))
	for i, a := range items {
		out[i] = view(a)
	}
	return out
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if a.UserID == uuid.Nil {
		if id, ok := auth.UserUUIDFromContext(ctx); ok {
			a.UserID = id
		}
	}
	if a.UserID != uuid.Nil {
		if err := auth.RequireWrite(ctx, a.UserID); err != nil {
			return err
		}
	}
	if err := h.svc.Create(ctx, &a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, view(&a))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.load(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view(a))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	upd := Appointment{ReminderMinutesBefore: existing.ReminderMinutesBefore}
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = existing.ID
	a, err := h.svc.Update(c.Request().Context(), &upd)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, view(a))
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), existing.ID)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, view(a))
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), existing.ID)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, view(a))
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	if err := h.svc.SoftDelete(c.Request().Context(), existing.ID); err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) userParam(c echo.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

func (h *Handler) ListUserAppointments(c echo.Context) error {
	userID, err := h.userParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByUser(c.Request().Context(), userID, ListFilter{Status: c.QueryParam("status")}, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) ListUpcoming(c echo.Context) error {
	userID, err := h.userParam(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.ListUpcoming(c.Request().Context(), userID, h.svc.now(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views(items), "total": len(items)})
}
